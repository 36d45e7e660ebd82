package auth

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/spec-kit/blood-drive-checkin/pkg/util/errorutil"
)

const kioskRealm = "Kiosk"

// HashPassword hashes a plaintext password with the given cost.
func HashPassword(password string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}

// KioskAuthorizer accepts the configured kiosk account whose password matches the bcrypt hash.
func KioskAuthorizer(username, passwordHash string) func(user, pass string) bool {
	return func(user, pass string) bool {
		if subtle.ConstantTimeCompare([]byte(user), []byte(username)) != 1 {
			return false
		}
		return ComparePassword(passwordHash, pass) == nil
	}
}

// KioskBasicAuth guards the venue display routes. With no username configured the routes stay open.
func KioskBasicAuth(username, passwordHash string) fiber.Handler {
	if username == "" {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return basicauth.New(basicauth.Config{
		Realm:      kioskRealm,
		Authorizer: KioskAuthorizer(username, passwordHash),
		Unauthorized: func(c *fiber.Ctx) error {
			c.Set(fiber.HeaderWWWAuthenticate, "basic realm="+kioskRealm)
			return apperrors.NewUnauthorized("kiosk credentials required")
		},
	})
}
