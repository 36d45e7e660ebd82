package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/blood-drive-checkin/internal/domain"
)

func TestFindRegistration(t *testing.T) {
	regs := []domain.Registration{
		{ID: "reg-1", Phone: "0901234567", Email: "An.Nguyen@Example.org"},
		{ID: "reg-2", Phone: "0907654321", Email: ""},
		{ID: "reg-3", Phone: "0907654321", Email: "dup@example.org"},
	}

	cases := []struct {
		name       string
		identifier string
		wantID     string
	}{
		{"phone", "0901234567", "reg-1"},
		{"email ignores case", "an.nguyen@example.ORG", "reg-1"},
		{"trimmed", "  0901234567\t", "reg-1"},
		{"first match wins", "0907654321", "reg-2"},
		{"partial phone", "090123", ""},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reg, ok := FindRegistration(regs, tc.identifier)
			if tc.wantID == "" {
				assert.False(t, ok)
				assert.Nil(t, reg)
				return
			}
			assert.True(t, ok)
			assert.Equal(t, tc.wantID, reg.ID)
		})
	}
}

func TestFindRegistration_EmptyEmailNeverMatches(t *testing.T) {
	regs := []domain.Registration{{ID: "reg-1", Phone: "", Email: ""}}
	_, ok := FindRegistration(regs, " ")
	assert.False(t, ok)
}
