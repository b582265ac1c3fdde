package model

import "time"

type Role string

const (
	RoleClient  Role = "client"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// User is keyed by the Telegram user id, so no autoincrement.
type User struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement:false"`
	Username  string    `gorm:"size:64"`
	FirstName string    `gorm:"column:first_name;size:128"`
	LastName  string    `gorm:"column:last_name;size:128"`
	Role      Role      `gorm:"size:16;not null;default:client"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) IsAdmin() bool   { return u.Role == RoleAdmin }
func (u *User) IsManager() bool { return u.Role == RoleManager }
func (u *User) IsClient() bool  { return u.Role == RoleClient }
