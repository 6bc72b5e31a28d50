package auth

import "time"

// Role is an explicit, ranked privilege level. Every user is provisioned with
// exactly one role; there is no implicit default.
type Role string

const (
	RoleViewer     Role = "viewer"
	RoleController Role = "controller"
	RoleAdmin      Role = "admin"
)

var roleRank = map[Role]int{
	RoleViewer:     1,
	RoleController: 2,
	RoleAdmin:      3,
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether r carries at least the privilege of min.
func (r Role) AtLeast(min Role) bool {
	return roleRank[r] >= roleRank[min]
}

// User is an immutable provisioned account.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

// Identity is the ephemeral result of a successful credential check. It is
// never persisted; sessions and tokens are derived from it.
type Identity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// TokenPair bundles the access and refresh tokens minted for one session.
type TokenPair struct {
	AccessToken  string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int64 `json:"expiresIn"`
}
