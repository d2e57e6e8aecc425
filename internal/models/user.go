package models

import (
	"strconv"
	"time"
)

// User is the account a session belongs to. Only the fields the
// authentication flows read or write are modelled here.
type User struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Name        string     `gorm:"uniqueIndex;size:100;not null" json:"name"`
	Password    string     `gorm:"size:255;not null" json:"-"` // bcrypt hash
	Avatar      *string    `gorm:"size:500" json:"avatar"`
	HomeTown    *string    `gorm:"size:200" json:"home_town"`
	IsValid     bool       `gorm:"default:true" json:"is_valid"`
	LastLoginAt *time.Time `json:"last_login_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (User) TableName() string { return "users" }

// UserView is the public projection returned by the auth endpoints.
type UserView struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Avatar *string `json:"avatar,omitempty"`
}

// View returns the public projection of u.
func (u *User) View() UserView {
	return UserView{
		ID:     strconv.FormatUint(uint64(u.ID), 10),
		Name:   u.Name,
		Avatar: u.Avatar,
	}
}
