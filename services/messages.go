package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/lazypandaa/connect/db"
	"github.com/lazypandaa/connect/models"

	"gorm.io/gorm"
)

const maxMessageLength = 4000

// ChatService - личные сообщения между парами пользователей
type ChatService struct{}

func NewChatService() *ChatService {
	return &ChatService{}
}

// Send сохраняет непрочитанное сообщение. Между заблокированными переписка запрещена
func (s *ChatService) Send(ctx context.Context, senderID, receiverID int64, text string) (*models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > maxMessageLength {
		return nil, fmt.Errorf("%w: message is longer than %d characters", ErrInvalidInput, maxMessageLength)
	}
	if senderID == receiverID {
		return nil, ErrSelfRelation
	}
	if err := userExists(ctx, receiverID); err != nil {
		return nil, err
	}

	msg := &models.Message{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Text:       text,
		IsRead:     false,
	}
	err := db.GetWriteDB(ctx).Transaction(func(tx *gorm.DB) error {
		blocked, err := IsBlocked(tx, senderID, receiverID)
		if err != nil {
			return err
		}
		if blocked {
			return ErrBlocked
		}
		return tx.Create(msg).Error
	})
	if err != nil {
		return nil, err
	}

	Notify(ctx, Event{
		Type:      EventMessage,
		UserID:    receiverID,
		ActorID:   senderID,
		EntityID:  msg.ID,
		Preview:   msg.Text,
		CreatedAt: msg.CreatedAt,
	})
	return msg, nil
}

// Conversation возвращает переписку по возрастанию времени
// и отмечает входящие от собеседника как прочитанные
func (s *ChatService) Conversation(ctx context.Context, userID, friendID int64) ([]models.Message, error) {
	var messages []models.Message
	err := db.GetWriteDB(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			userID, friendID, friendID, userID).
			Order("created_at ASC, id ASC").
			Find(&messages).Error
		if err != nil {
			return err
		}
		_, err = markRead(tx, userID, friendID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// MarkRead отмечает сообщения sender -> receiver прочитанными, возвращает число обновленных
func (s *ChatService) MarkRead(ctx context.Context, receiverID, senderID int64) (int64, error) {
	return markRead(db.GetWriteDB(ctx), receiverID, senderID)
}

func markRead(tx *gorm.DB, receiverID, senderID int64) (int64, error) {
	res := tx.Model(&models.Message{}).
		Where("sender_id = ? AND receiver_id = ? AND is_read = ?", senderID, receiverID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

func (s *ChatService) Statistics(ctx context.Context, userID int64) (*models.ChatStatistics, error) {
	read := db.GetReadOnlyDB(ctx)
	stats := &models.ChatStatistics{}

	if err := read.Model(&models.Message{}).Where("sender_id = ?", userID).Count(&stats.MessagesSent).Error; err != nil {
		return nil, err
	}
	if err := read.Model(&models.Message{}).Where("receiver_id = ?", userID).Count(&stats.MessagesReceived).Error; err != nil {
		return nil, err
	}
	if err := read.Model(&models.Message{}).
		Where("receiver_id = ? AND is_read = ?", userID, false).
		Count(&stats.UnreadMessages).Error; err != nil {
		return nil, err
	}

	var partners []int64
	err := read.Model(&models.Message{}).
		Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Distinct("CASE WHEN sender_id = ? THEN receiver_id ELSE sender_id END", userID).
		Scan(&partners).Error
	if err != nil {
		return nil, err
	}
	stats.ConversationsCount = int64(len(partners))
	return stats, nil
}

// UnreadCounts - число непрочитанных по каждому отправителю
func (s *ChatService) UnreadCounts(ctx context.Context, userID int64) ([]models.UnreadCount, error) {
	counts := []models.UnreadCount{}
	err := db.GetReadOnlyDB(ctx).
		Table("chat_messages cm").
		Select("cm.sender_id AS sender_id, u.fullname AS fullname, COUNT(*) AS unread_count").
		Joins("JOIN users u ON u.id = cm.sender_id").
		Where("cm.receiver_id = ? AND cm.is_read = ?", userID, false).
		Group("cm.sender_id, u.fullname").
		Order("unread_count DESC, cm.sender_id").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// LastMessages - последнее сообщение каждого диалога, новые сверху
func (s *ChatService) LastMessages(ctx context.Context, userID int64) ([]models.LastMessage, error) {
	var messages []models.Message
	err := db.GetReadOnlyDB(ctx).
		Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Order("created_at DESC, id DESC").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]bool)
	var latest []models.Message
	var others []int64
	for _, m := range messages {
		other := m.ReceiverID
		if other == userID {
			other = m.SenderID
		}
		if seen[other] {
			continue
		}
		seen[other] = true
		latest = append(latest, m)
		others = append(others, other)
	}

	users, err := usersByID(ctx, others)
	if err != nil {
		return nil, err
	}
	result := make([]models.LastMessage, 0, len(latest))
	for i, m := range latest {
		result = append(result, models.LastMessage{
			Message:       m,
			OtherUserID:   others[i],
			OtherUserName: users[others[i]].Fullname,
		})
	}
	return result, nil
}
