package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/matchfeed/internal/db"
	"github.com/oggyb/matchfeed/internal/utils/pagination"
)

// MessageRepository provides data access methods for the Message model.
type MessageRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewMessageRepository creates a new repository bound to the given DB connection.
func NewMessageRepository(database *gorm.DB) *MessageRepository {
	return &MessageRepository{db: database, now: db.Now}
}

// Create appends a message to a match.
//
// Behavior:
//   - Runs in one transaction with the matches.last_message_at update.
//   - created_at is max(now, last_message_at), so timestamps never go
//     backwards within a match even if the clock does.
//
// Example:
//
//	repo.Create(ctx, matchID, alice, "hi")
func (r *MessageRepository) Create(ctx context.Context, matchID, senderID, text string) (*db.Message, error) {
	msg := db.Message{MatchID: matchID, SenderID: senderID, Text: text}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m db.Match
		if err := tx.Select("id", "last_message_at").Where("id = ?", matchID).First(&m).Error; err != nil {
			return err
		}

		createdAt := r.now()
		if m.LastMessageAt != nil && m.LastMessageAt.After(createdAt) {
			createdAt = m.LastMessageAt.UTC()
		}
		msg.CreatedAt = createdAt

		if err := tx.Create(&msg).Error; err != nil {
			return err
		}
		return tx.Model(&db.Match{}).
			Where("id = ?", matchID).
			Update("last_message_at", createdAt).Error
	})
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// List returns a page of a match's messages, oldest first.
//
// Behavior:
//   - Ordered by created_at ASC, id ASC.
//   - paginationToken is a TimeCursor. Rows strictly after (createdAt, id)
//     are returned; a token without id means strictly after createdAt.
//   - A malformed token is treated as the first page.
//   - nextToken is set only when the page is full.
func (r *MessageRepository) List(
	ctx context.Context,
	matchID string,
	paginationToken *string,
	limit int,
) ([]db.Message, *string, error) {
	var messages []db.Message

	query := r.db.WithContext(ctx).
		Where("match_id = ?", matchID).
		Order("created_at ASC, id ASC").
		Limit(limit)

	if c, ok := pagination.DecodeTime(getString(paginationToken)); ok {
		if c.ID != "" {
			query = query.Where("(created_at > ? OR (created_at = ? AND id > ?))", c.CreatedAt, c.CreatedAt, c.ID)
		} else {
			query = query.Where("created_at > ?", c.CreatedAt)
		}
	}

	if err := query.Find(&messages).Error; err != nil {
		return nil, nil, err
	}

	var nextToken *string
	if len(messages) == limit && limit > 0 {
		last := messages[len(messages)-1]
		token, err := pagination.Encode(pagination.TimeCursor{CreatedAt: last.CreatedAt.UTC(), ID: last.ID})
		if err != nil {
			return nil, nil, err
		}
		nextToken = &token
	}
	return messages, nextToken, nil
}
