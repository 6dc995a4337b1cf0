package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/lazypandaa/connect/logger"

	"go.uber.org/zap"
)

type EventType string

const (
	EventFriendRequest  EventType = "friend_request"
	EventFriendAccepted EventType = "friend_accepted"
	EventMessage        EventType = "message"
	EventPostLiked      EventType = "post_liked"

	maxPreviewLength = 100
)

// Event - уведомление для одного пользователя (UserID - получатель)
type Event struct {
	Type      EventType `json:"event"`
	UserID    int64     `json:"user_id"`
	ActorID   int64     `json:"actor_id"`
	EntityID  int64     `json:"entity_id,omitempty"`
	Preview   string    `json:"preview,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Notifier interface {
	Publish(ctx context.Context, event Event) error
}

// wsNotifier доставляет события напрямую в локальные WebSocket-соединения
type wsNotifier struct {
	manager *WSConnManager
}

func (n wsNotifier) Publish(_ context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	n.manager.Send(event.UserID, data)
	return nil
}

var (
	notifierMu sync.RWMutex
	notifier   Notifier = wsNotifier{manager: GlobalWSConnManager}
)

func SetNotifier(n Notifier) {
	notifierMu.Lock()
	defer notifierMu.Unlock()
	if n == nil {
		n = wsNotifier{manager: GlobalWSConnManager}
	}
	notifier = n
}

// Notify отправляет событие. Ошибки доставки только логируются
func Notify(ctx context.Context, event Event) {
	if event.UserID <= 0 {
		return
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	event.Preview = truncatePreview(event.Preview)

	notifierMu.RLock()
	n := notifier
	notifierMu.RUnlock()

	if err := n.Publish(ctx, event); err != nil {
		logger.L().Warn("failed to publish event",
			zap.String("event", string(event.Type)),
			zap.Int64("user_id", event.UserID),
			zap.Error(err))
	}
}

func truncatePreview(s string) string {
	if utf8.RuneCountInString(s) <= maxPreviewLength {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxPreviewLength]) + "..."
}
