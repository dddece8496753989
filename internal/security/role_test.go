package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOriginalToken(t *testing.T) {
	admin := NewAuthToken("admin", RolesFromNames([]string{RoleAdmin}), LevelFully)
	other := NewAuthToken("root", nil, LevelFully)

	tests := []struct {
		name     string
		token    Token
		expected Token
		found    bool
	}{
		{
			name:  "nil token",
			token: nil,
		},
		{
			name:  "no roles",
			token: NewAuthToken("alice", nil, LevelFully),
		},
		{
			name:  "roles without marker",
			token: NewAuthToken("alice", RolesFromNames([]string{RoleUser, RoleAdmin}), LevelFully),
		},
		{
			name:     "marker among roles",
			token:    NewAuthToken("alice", []Role{NamedRole(RoleUser), NewSwitchUserRole(admin)}, LevelFully),
			expected: admin,
			found:    true,
		},
		{
			name:     "pointer marker",
			token:    NewAuthToken("alice", []Role{&SwitchUserRole{Name: RolePreviousAdmin, Source: admin}}, LevelFully),
			expected: admin,
			found:    true,
		},
		{
			name:     "first marker wins",
			token:    NewAuthToken("alice", []Role{NewSwitchUserRole(admin), NewSwitchUserRole(other)}, LevelFully),
			expected: admin,
			found:    true,
		},
		{
			name:  "marker without source",
			token: NewAuthToken("alice", []Role{SwitchUserRole{Name: RolePreviousAdmin}}, LevelFully),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := OriginalToken(tt.token)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.Same(t, tt.expected, got)
			} else {
				assert.Nil(t, got)
			}
		})
	}
}

func TestRolesFromNames(t *testing.T) {
	roles := RolesFromNames([]string{RoleUser, "", RoleAdmin})

	assert.Equal(t, []Role{NamedRole(RoleUser), NamedRole(RoleAdmin)}, roles)
	assert.Empty(t, RolesFromNames(nil))
}

func TestSwitchUserRoleName(t *testing.T) {
	role := NewSwitchUserRole(NewAnonymousToken())
	assert.Equal(t, RolePreviousAdmin, role.Role())
}
