package models

import "strings"

type Role string

const (
	RoleEmployee string = "employee"
	RoleAdmin    string = "admin"
)

type User struct {
	ID        uint   `gorm:"primarykey" json:"id"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
	ChatID    int64  `gorm:"uniqueIndex;not null" json:"chat_id"`
	Username  string `json:"username"`
	FirstName string `gorm:"not null" json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `gorm:"index" json:"email"`
	Role      string `gorm:"default:'employee'" json:"role"`
}

// IsAdmin reports whether the user may run admin commands.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Key is the user id as seen by the shift pipeline.
func (u *User) Key() string {
	return UserKey(u.ID)
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (User) TableName() string {
	return "users"
}
