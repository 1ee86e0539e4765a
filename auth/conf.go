package auth

import "fmt"

// Role grants a set of permissions on the API.
type Role string

const (
	// RoleAdmin has full control over the simulation.
	RoleAdmin Role = "admin"
	// RoleViewer can only read.
	RoleViewer Role = "viewer"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool { return r == RoleAdmin || r == RoleViewer }

// CanEdit reports whether the role may change the simulation.
func (r Role) CanEdit() bool { return r == RoleAdmin }

// User is one configured account. PasswordHash is a bcrypt hash.
type User struct {
	Name         string `json:"name"`
	PasswordHash string `json:"password_hash"`
	Role         Role   `json:"role"`
}

// Conf lists the accounts allowed to use the API. With no users the API is
// open and every caller is treated as Anonymous.
type Conf struct {
	Users     []User `json:"users"`
	Anonymous Role   `json:"anonymous"`
}

// SetDefaults selects viewer access for anonymous callers.
func (c *Conf) SetDefaults() {
	if c.Anonymous == "" {
		c.Anonymous = RoleViewer
	}
}

// Validate checks the configured accounts.
func (c Conf) Validate() error {
	if c.Anonymous != "" && !c.Anonymous.Valid() {
		return fmt.Errorf("auth: unknown anonymous role %q", c.Anonymous)
	}
	seen := make(map[string]bool, len(c.Users))
	for i, u := range c.Users {
		if u.Name == "" {
			return fmt.Errorf("auth: user %d has no name", i)
		}
		if seen[u.Name] {
			return fmt.Errorf("auth: duplicate user %q", u.Name)
		}
		seen[u.Name] = true
		if !u.Role.Valid() {
			return fmt.Errorf("auth: user %q has unknown role %q", u.Name, u.Role)
		}
		if u.PasswordHash == "" {
			return fmt.Errorf("auth: user %q has no password hash", u.Name)
		}
	}
	return nil
}
