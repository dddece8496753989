package security

import "fmt"

// AuthLevel is how strongly the holder of a token has been authenticated.
type AuthLevel int

const (
	LevelAnonymous AuthLevel = iota
	LevelRemembered
	LevelFully
)

func (l AuthLevel) String() string {
	switch l {
	case LevelAnonymous:
		return "anonymous"
	case LevelRemembered:
		return "remembered"
	case LevelFully:
		return "fully"
	default:
		return fmt.Sprintf("AuthLevel(%d)", int(l))
	}
}

// AnonymousUser is the principal of an anonymous token.
const AnonymousUser = "anon."

// Token is the authenticated identity of a request.
type Token interface {
	// User returns the principal: a user object or a plain username.
	User() any
	// Username returns the display name of the principal.
	Username() string
	Roles() []Role
	Level() AuthLevel
}

// UserInterface is implemented by principals that carry their own username.
type UserInterface interface {
	GetUsername() string
}

// AuthToken is the Token implementation used by this module.
type AuthToken struct {
	user  any
	roles []Role
	level AuthLevel
}

// NewAuthToken returns a token for user with the given roles and level.
func NewAuthToken(user any, roles []Role, level AuthLevel) *AuthToken {
	r := make([]Role, len(roles))
	copy(r, roles)
	return &AuthToken{user: user, roles: r, level: level}
}

// NewAnonymousToken returns the token of an unauthenticated request.
func NewAnonymousToken() *AuthToken {
	return &AuthToken{user: AnonymousUser, level: LevelAnonymous}
}

func (t *AuthToken) User() any {
	return t.user
}

func (t *AuthToken) Username() string {
	return UsernameOf(t.user)
}

func (t *AuthToken) Roles() []Role {
	return t.roles
}

func (t *AuthToken) Level() AuthLevel {
	return t.level
}

func (t *AuthToken) String() string {
	return fmt.Sprintf("AuthToken(user=%q, level=%s, roles=%d)", t.Username(), t.level, len(t.roles))
}

// UsernameOf renders a principal as a username.
func UsernameOf(user any) string {
	switch u := user.(type) {
	case nil:
		return ""
	case string:
		return u
	case UserInterface:
		return u.GetUsername()
	case fmt.Stringer:
		return u.String()
	default:
		return fmt.Sprint(u)
	}
}
