package service

import (
	"strings"

	"github.com/spec-kit/blood-drive-checkin/internal/domain"
)

// FindRegistration returns the first registration whose donor phone matches the identifier exactly or
// whose email matches it ignoring case. Surrounding whitespace is ignored.
func FindRegistration(regs []domain.Registration, identifier string) (*domain.Registration, bool) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, false
	}
	for i := range regs {
		phone := strings.TrimSpace(regs[i].Phone)
		email := strings.TrimSpace(regs[i].Email)
		if (phone != "" && phone == identifier) || (email != "" && strings.EqualFold(email, identifier)) {
			return &regs[i], true
		}
	}
	return nil, false
}
