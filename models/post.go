package models

import "time"

type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityFriends Visibility = "friends"
	VisibilityPrivate Visibility = "private"
)

func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityFriends, VisibilityPrivate:
		return true
	}
	return false
}

// Post - модель поста пользователя
type Post struct {
	ID         int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     int64      `gorm:"index;not null" json:"user_id"`
	Caption    string     `gorm:"type:text" json:"caption"`
	ImageData  string     `gorm:"type:text" json:"image_data"`
	Visibility Visibility `gorm:"size:16;not null;default:public;index" json:"visibility"`
	LikesCount int64      `gorm:"not null;default:0" json:"likes_count"`
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (Post) TableName() string {
	return "posts"
}

// PostLike - отметка "нравится", одна на пару (пост, пользователь)
type PostLike struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	PostID    int64     `gorm:"not null;uniqueIndex:idx_post_like" json:"post_id"`
	UserID    int64     `gorm:"not null;uniqueIndex:idx_post_like" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (PostLike) TableName() string {
	return "post_likes"
}

// FeedPost - пост в ленте с данными автора
type FeedPost struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"user_id"`
	Fullname   string     `json:"fullname"`
	Email      string     `json:"email"`
	Caption    string     `json:"caption"`
	ImageData  string     `json:"image_data"`
	Visibility Visibility `json:"visibility"`
	LikesCount int64      `json:"likes_count"`
	CreatedAt  time.Time  `json:"created_at"`
}

// FeedResponse - ответ API для ленты
type FeedResponse struct {
	Posts   []FeedPost `json:"posts"`
	HasMore bool       `json:"has_more"`
	LastID  int64      `json:"last_id,omitempty"`
}
