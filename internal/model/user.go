package model

import "time"

// Role is the enumerated account role.
type Role string

const (
	RoleTenant   Role = "tenant"
	RoleManager  Role = "manager"
	RoleOwner    Role = "owner"
	RoleVisitor  Role = "visitor"
	RoleSecurity Role = "security"
)

// Roles lists every accepted role in declaration order.
var Roles = []Role{RoleTenant, RoleManager, RoleOwner, RoleVisitor, RoleSecurity}

// Valid reports whether r is one of the enumerated roles.
func (r Role) Valid() bool {
	for _, v := range Roles {
		if r == v {
			return true
		}
	}
	return false
}

// User mirrors a row of the `users` table.
//
// Fields:
//  ID           – primary key.
//  Username     – unique, lowercased.
//  FullName     – display name.
//  Email        – unique, lowercased.
//  PasswordHash – bcrypt hash; never the submitted plaintext.
//  Role         – one of Roles.
//  RefreshToken – the single live refresh token, nil when logged out.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64
	Username     string
	FullName     string
	Email        string
	PasswordHash string
	Role         Role
	RefreshToken *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SanitizedUser is the account projection returned to clients: it never
// carries the password hash or the refresh token.
type SanitizedUser struct {
	ID        uint64    `json:"_id"`
	Username  string    `json:"username"`
	FullName  string    `json:"fullName"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Sanitize drops the secret fields of u.
func (u User) Sanitize() SanitizedUser {
	return SanitizedUser{
		ID:        u.ID,
		Username:  u.Username,
		FullName:  u.FullName,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
