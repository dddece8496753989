package security

// Well-known role names.
const (
	// RolePreviousAdmin names the switch-user marker added to an impersonation token.
	RolePreviousAdmin = "ROLE_PREVIOUS_ADMIN"
	// RoleAllowedToSwitch grants the right to impersonate other users.
	RoleAllowedToSwitch = "ROLE_ALLOWED_TO_SWITCH"
	RoleAdmin           = "ROLE_ADMIN"
	RoleUser            = "ROLE_USER"
)

// Role is a role granted to a token. The only implementations are NamedRole and SwitchUserRole.
type Role interface {
	Role() string
	isRole()
}

// NamedRole is a plain role such as "ROLE_USER".
type NamedRole string

func (r NamedRole) Role() string { return string(r) }

func (NamedRole) isRole() {}

// SwitchUserRole marks a token obtained by switching user. Source is the token
// of the session that performed the switch.
type SwitchUserRole struct {
	Name   string
	Source Token
}

func (r SwitchUserRole) Role() string { return r.Name }

func (SwitchUserRole) isRole() {}

// NewSwitchUserRole returns the marker placed on impersonation tokens.
func NewSwitchUserRole(source Token) SwitchUserRole {
	return SwitchUserRole{Name: RolePreviousAdmin, Source: source}
}

// RolesFromNames wraps role names as NamedRoles.
func RolesFromNames(names []string) []Role {
	roles := make([]Role, 0, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		roles = append(roles, NamedRole(name))
	}
	return roles
}

// OriginalToken returns the token that switched into t.
// The first SwitchUserRole among t's roles wins; ok is false when t was not
// obtained by switching user.
func OriginalToken(t Token) (original Token, ok bool) {
	if t == nil {
		return nil, false
	}
	for _, role := range t.Roles() {
		switch r := role.(type) {
		case SwitchUserRole:
			return r.Source, r.Source != nil
		case *SwitchUserRole:
			if r == nil {
				continue
			}
			return r.Source, r.Source != nil
		}
	}
	return nil, false
}
