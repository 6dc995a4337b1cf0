package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wsPair поднимает сервер, который регистрирует соединение userID в manager
func wsPair(t *testing.T, manager *WSConnManager, userID int64) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{}
	registered := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		manager.Add(userID, conn)
		close(registered)
		defer manager.Remove(userID, conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	select {
	case <-registered:
	case <-time.After(2 * time.Second):
		t.Fatal("connection was not registered")
	}
	return client
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var event Event
	require.NoError(t, json.Unmarshal(data, &event))
	return event
}

func TestWSNotifierDeliversToUser(t *testing.T) {
	manager := NewWSConnManager()
	client := wsPair(t, manager, 7)
	assert.Equal(t, 1, manager.Count(7))

	n := wsNotifier{manager: manager}
	require.NoError(t, n.Publish(context.Background(), Event{Type: EventMessage, UserID: 7, ActorID: 3, Preview: "hi"}))

	event := readEvent(t, client)
	assert.Equal(t, EventMessage, event.Type)
	assert.Equal(t, int64(3), event.ActorID)
	assert.Equal(t, "hi", event.Preview)

	// другим пользователям не доставляется
	assert.Zero(t, manager.Send(8, []byte(`{}`)))
}

func TestDeliverForwardsRabbitBody(t *testing.T) {
	manager := NewWSConnManager()
	client := wsPair(t, manager, 5)

	body, err := json.Marshal(Event{Type: EventPostLiked, UserID: 5, ActorID: 9, EntityID: 42})
	require.NoError(t, err)
	deliver(manager, body)

	event := readEvent(t, client)
	assert.Equal(t, EventPostLiked, event.Type)
	assert.Equal(t, int64(42), event.EntityID)

	// мусор и события без адресата игнорируются
	deliver(manager, []byte("not json"))
	deliver(manager, []byte(`{"event":"message","user_id":0}`))
}

func TestRoutingKey(t *testing.T) {
	assert.Equal(t, "user.15", routingKey(15))
}

func TestNotifyFillsDefaults(t *testing.T) {
	rec := &recorder{}
	SetNotifier(rec)
	defer SetNotifier(nil)

	Notify(context.Background(), Event{Type: EventMessage, UserID: 0})
	Notify(context.Background(), Event{Type: EventMessage, UserID: 1, Preview: strings.Repeat("a", 150)})

	events := rec.All()
	require.Len(t, events, 1)
	assert.False(t, events[0].CreatedAt.IsZero())
	assert.Len(t, events[0].Preview, maxPreviewLength+3)
}

func TestManagerRemove(t *testing.T) {
	manager := NewWSConnManager()
	client := wsPair(t, manager, 1)
	require.Equal(t, 1, manager.Count(1))

	require.NoError(t, client.Close())
	assert.Eventually(t, func() bool { return manager.Count(1) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestTokenCleanupSchedule(t *testing.T) {
	setupServices(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := StartTokenCleanup(ctx, "not a schedule", Tokens)
	assert.Error(t, err)

	scheduler, err := StartTokenCleanup(ctx, "@every 1h", Tokens)
	require.NoError(t, err)
	assert.Len(t, scheduler.Entries(), 1)
}
