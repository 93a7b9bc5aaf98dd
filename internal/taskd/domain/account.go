package domain

import "time"

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

func (r Role) Valid() bool { return r == RoleUser || r == RoleAdmin }

type Account struct {
	ID           int64
	Email        string // always lower-cased
	Username     string
	PasswordHash string // argon2id PHC string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
