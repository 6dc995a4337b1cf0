package models

import (
	"time"
)

// Message представляет сообщение в диалоге между пользователями
type Message struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SenderID   int64     `gorm:"not null;index:idx_chat_pair,priority:1" json:"sender_id"`
	ReceiverID int64     `gorm:"not null;index:idx_chat_pair,priority:2;index" json:"receiver_id"`
	Text       string    `gorm:"column:message_text;type:text;not null" json:"message_text"`
	IsRead     bool      `gorm:"not null;default:false" json:"is_read"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index:idx_chat_pair,priority:3" json:"created_at"`
}

func (Message) TableName() string {
	return "chat_messages"
}

type ChatStatistics struct {
	MessagesSent       int64 `json:"messagesSent"`
	MessagesReceived   int64 `json:"messagesReceived"`
	UnreadMessages     int64 `json:"unreadMessages"`
	ConversationsCount int64 `json:"conversationsCount"`
}

type UnreadCount struct {
	SenderID    int64  `json:"sender_id"`
	Fullname    string `json:"fullname"`
	UnreadCount int64  `json:"unread_count"`
}

// LastMessage - последнее сообщение диалога с именем собеседника
type LastMessage struct {
	Message
	OtherUserID   int64  `json:"other_user_id"`
	OtherUserName string `json:"other_user_name"`
}
