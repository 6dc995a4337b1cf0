package models

import "time"

type FriendStatus string

const (
	FriendPending  FriendStatus = "pending"
	FriendAccepted FriendStatus = "accepted"
	FriendRejected FriendStatus = "rejected"
	FriendBlocked  FriendStatus = "blocked"
)

// Friend - ребро дружбы между двумя пользователями.
// Пара хранится в каноническом порядке (UserLowID < UserHighID),
// поэтому на неупорядоченную пару приходится не больше одной строки.
type Friend struct {
	ID         int64        `gorm:"primaryKey;autoIncrement" json:"id"`
	UserLowID  int64        `gorm:"not null;uniqueIndex:idx_friend_pair" json:"-"`
	UserHighID int64        `gorm:"not null;uniqueIndex:idx_friend_pair" json:"-"`
	SenderID   int64        `gorm:"not null;index" json:"sender_id"`
	ReceiverID int64        `gorm:"not null;index" json:"receiver_id"`
	Status     FriendStatus `gorm:"size:16;not null;index" json:"status"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

func (Friend) TableName() string {
	return "friends"
}

// PairKey возвращает идентификаторы пары в каноническом порядке
func PairKey(a, b int64) (low, high int64) {
	if a < b {
		return a, b
	}
	return b, a
}

// NewFriend создает ребро от sender к receiver
func NewFriend(senderID, receiverID int64, status FriendStatus) *Friend {
	low, high := PairKey(senderID, receiverID)
	return &Friend{
		UserLowID:  low,
		UserHighID: high,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Status:     status,
	}
}

// Other возвращает второго участника ребра
func (f *Friend) Other(userID int64) int64 {
	if f.SenderID == userID {
		return f.ReceiverID
	}
	return f.SenderID
}

// FriendRequest - заявка в друзья вместе с данными второй стороны
type FriendRequest struct {
	ID        int64     `json:"id"`
	Sender    *UserInfo `json:"sender,omitempty"`
	Receiver  *UserInfo `json:"receiver,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// UserCandidate - пользователь в поиске и рекомендациях
type UserCandidate struct {
	UserInfo
	RequestSent   bool `json:"requestSent"`
	MutualFriends int  `json:"mutualFriends,omitempty"`
}
