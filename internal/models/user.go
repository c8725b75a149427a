package models

import (
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleStaff   Role = "staff"
)

func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleManager || r == RoleStaff
}

const (
	PermissionViewReports   = "view_reports"
	PermissionManageReports = "manage_reports"
	PermissionManageHotel   = "manage_hotel"
	PermissionManageUsers   = "manage_users"
)

// Can reports whether the role may perform action.
func (r Role) Can(action string) bool {
	switch r {
	case RoleAdmin:
		return true
	case RoleManager:
		return action != PermissionManageUsers
	case RoleStaff:
		return action == PermissionViewReports || action == PermissionManageHotel
	default:
		return false
	}
}

type User struct {
	gorm.Model
	Username string `gorm:"uniqueIndex;not null" json:"username"`
	Password string `gorm:"not null" json:"-"`
	Role     Role   `gorm:"not null" json:"role"`
	Email    string `gorm:"index" json:"email"`
	IsActive bool   `json:"is_active"`
}

func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}

func (u *User) HasPermission(action string) bool {
	return u.Role.Can(action)
}
