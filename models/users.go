package models

import (
	"time"
)

type User struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Fullname  string    `gorm:"size:255;index" json:"fullname"`
	Email     string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Password  string    `gorm:"size:255;not null" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// UserInfo - публичное представление пользователя (без пароля)
type UserInfo struct {
	ID       int64  `json:"id"`
	Fullname string `json:"fullname"`
	Email    string `json:"email"`
}

func (u *User) Info() UserInfo {
	return UserInfo{ID: u.ID, Fullname: u.Fullname, Email: u.Email}
}

// UserTokens - выданные токены. Наличие строки означает, что токен не отозван
type UserTokens struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"index;not null" json:"user_id"`
	TokenID   string    `gorm:"size:64;uniqueIndex;not null" json:"token_id"`
	ExpiresAt time.Time `gorm:"index" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

func (UserTokens) TableName() string {
	return "user_tokens"
}
