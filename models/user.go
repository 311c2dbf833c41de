package models

import (
	"time"
)

// UserRole defines allowed roles in the system
type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// Valid reports whether r is one of the known roles
func (r UserRole) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

type Account struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	Username     string    `json:"username" gorm:"not null"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"not null"`
	Role         UserRole  `json:"role" gorm:"not null;default:'user'"`
	CreatedAt    time.Time `json:"createdAt"`
}
