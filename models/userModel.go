package models

import "gorm.io/gorm"

// Role is the closed set of account kinds. Every authorization decision
// switches on it, so adding a value means revisiting services/access.go.
type Role string

const (
	RoleFarmer Role = "farmer"
	RoleBuyer  Role = "buyer"
)

func (r Role) Valid() bool {
	switch r {
	case RoleFarmer, RoleBuyer:
		return true
	default:
		return false
	}
}

// ParseRole defaults an empty role to buyer.
func ParseRole(value string) (Role, bool) {
	if value == "" {
		return RoleBuyer, true
	}
	role := Role(value)
	return role, role.Valid()
}

type User struct {
	gorm.Model
	Name     string `json:"name" gorm:"size:100;not null"`
	Email    string `json:"email" gorm:"size:120;not null;uniqueIndex"`
	Password string `json:"-" gorm:"size:255;not null"`
	Role     Role   `json:"role" gorm:"size:20;not null;index"`
}

type SignupData struct {
	Name     string `json:"name" binding:"required,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"omitempty,oneof=farmer buyer"`
}

type LoginData struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}
