package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spec-kit/blood-drive-checkin/internal/auth"
	"github.com/spec-kit/blood-drive-checkin/internal/domain"
)

func tokenCmd() *cobra.Command {
	var (
		subject string
		id      string
		role    string
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development bearer token for a donor or staff member",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			subjectType, staffRole, err := parseTokenSubject(subject, role)
			if err != nil {
				return err
			}
			tokens := auth.NewTokenManager(app.cfg.Auth.JWTSecret, app.cfg.Auth.AccessTokenTTLMinutes)
			signed, meta, err := tokens.GenerateToken(id, subjectType, staffRole)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), signed)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", domain.FormatTimestamp(meta.ExpiresAt))
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "donor", "Token subject: donor or staff")
	cmd.Flags().StringVar(&id, "id", "", "Donor or staff member id")
	cmd.Flags().StringVar(&role, "role", "", "Staff role: STAFF or ADMIN (staff tokens only)")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func parseTokenSubject(subject, role string) (domain.SubjectType, *domain.StaffRole, error) {
	switch strings.ToLower(subject) {
	case "donor":
		if role != "" {
			return "", nil, fmt.Errorf("--role only applies to staff tokens")
		}
		return domain.SubjectTypeDonor, nil, nil
	case "staff":
		staffRole := domain.StaffRoleStaff
		switch strings.ToUpper(role) {
		case "", string(domain.StaffRoleStaff):
		case string(domain.StaffRoleAdmin):
			staffRole = domain.StaffRoleAdmin
		default:
			return "", nil, fmt.Errorf("unknown staff role %q", role)
		}
		return domain.SubjectTypeStaff, &staffRole, nil
	default:
		return "", nil, fmt.Errorf("unknown subject %q", subject)
	}
}
