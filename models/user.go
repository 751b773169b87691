package models

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}

type User struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Username  string     `gorm:"uniqueIndex;size:64;not null" json:"username"`
	Email     string     `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password  string     `gorm:"not null" json:"-"` // Don't expose password hash
	Role      string     `gorm:"size:16;not null;index" json:"role"`
	Avatar    string     `json:"avatar"`
	IsActive  bool       `gorm:"not null;index" json:"isActive"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
	CreatedAt time.Time  `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// Author is the public projection of a user embedded in content records.
type Author struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

func (Author) TableName() string { return "users" }

// UserAudit records an administrative change to a user's role or status.
type UserAudit struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"userId"`
	ActorID   uint      `gorm:"not null" json:"actorId"`
	Field     string    `gorm:"size:32;not null" json:"field"`
	OldValue  string    `json:"oldValue"`
	NewValue  string    `json:"newValue"`
	CreatedAt time.Time `json:"createdAt"`
}
