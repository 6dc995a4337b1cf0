package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/lazypandaa/connect/db"
	"github.com/lazypandaa/connect/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// recorder запоминает опубликованные события вместо доставки
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Publish(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recorder) All() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *recorder) ByType(t EventType) []Event {
	var result []Event
	for _, e := range r.All() {
		if e.Type == t {
			result = append(result, e)
		}
	}
	return result
}

// setupServices поднимает sqlite в памяти и подменяет доставку событий
func setupServices(t *testing.T) *recorder {
	t.Helper()
	_, err := db.ConnectMemory()
	require.NoError(t, err)

	passwordCost = bcrypt.MinCost
	InitTokens("test-secret", time.Hour)

	rec := &recorder{}
	SetNotifier(rec)
	t.Cleanup(func() {
		SetNotifier(nil)
		_ = db.Close()
	})
	return rec
}

func createUser(t *testing.T, fullname string) *models.User {
	t.Helper()
	email := fmt.Sprintf("%s.%s@example.com", gofakeit.Username(), gofakeit.Numerify("######"))
	user, err := NewUserService().Register(context.Background(), fullname, email, "password123")
	require.NoError(t, err)
	return user
}

func makeFriends(t *testing.T, a, b *models.User) {
	t.Helper()
	fs := NewFriendService()
	edge, err := fs.SendRequest(context.Background(), a.ID, b.ID)
	require.NoError(t, err)
	_, err = fs.Accept(context.Background(), b.ID, edge.ID)
	require.NoError(t, err)
}
