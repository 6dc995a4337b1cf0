package db

import (
	"fmt"

	"gorm.io/gorm"
)

// Частичные индексы, которые нельзя описать тегами gorm.
// Синтаксис одинаков для PostgreSQL и SQLite.
var extraIndexes = []struct {
	name  string
	query string
}{
	{
		name:  "idx_chat_messages_unread",
		query: "CREATE INDEX IF NOT EXISTS idx_chat_messages_unread ON chat_messages (receiver_id, sender_id) WHERE is_read = FALSE",
	},
	{
		name:  "idx_posts_public_feed",
		query: "CREATE INDEX IF NOT EXISTS idx_posts_public_feed ON posts (id) WHERE visibility = 'public'",
	},
	{
		name:  "idx_friends_accepted",
		query: "CREATE INDEX IF NOT EXISTS idx_friends_accepted ON friends (sender_id, receiver_id) WHERE status = 'accepted'",
	},
}

// CreateIndexes создает дополнительные индексы, если их нет
func CreateIndexes(db *gorm.DB) error {
	for _, idx := range extraIndexes {
		if err := db.Exec(idx.query).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}
	return nil
}
