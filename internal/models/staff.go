package models

import "github.com/uptrace/bun"

// Staff roles.
const (
	RoleAdmin  = "admin"
	RoleWaiter = "waiter"
)

// Staff is one employee in the users table. PIN holds the pbkdf2 hash;
// rows created before hashing existed hold the raw PIN and an empty salt.
type Staff struct {
	bun.BaseModel `bun:"table:users"`

	ID   int64  `bun:"id,pk,autoincrement" json:"id"`
	Name string `bun:"name,notnull" json:"name"`
	PIN  string `bun:"pin,notnull" json:"-"`
	Salt string `bun:"salt,nullzero" json:"-"`
	Role string `bun:"role,default:'waiter'" json:"role"`
}

// StaffRef is the identity stamped onto orders and sales.
type StaffRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}
