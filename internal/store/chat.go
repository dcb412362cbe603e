package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/archestra/guard/pkg/models"
)

// --- Chats --------------------------------------------------------------

type chatStore struct{ *sqlStore }

func (s *chatStore) Create(ctx context.Context, c *models.Chat) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := timeNow()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	_, err := s.exec(ctx, `INSERT INTO chats (id, agent_id, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		c.ID, c.AgentID, c.CreatedAt, c.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("create chat: %w", err)
	}
	return nil
}

func (s *chatStore) Get(ctx context.Context, id string) (*models.Chat, error) {
	row := s.queryRow(ctx, `SELECT id, agent_id, created_at, updated_at FROM chats WHERE id = ?`, id)
	var c models.Chat
	if err := row.Scan(&c.ID, &c.AgentID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get chat: %w", err)
	}
	return &c, nil
}

func (s *chatStore) List(ctx context.Context) ([]*models.Chat, error) {
	rows, err := s.query(ctx, `SELECT id, agent_id, created_at, updated_at FROM chats ORDER BY created_at DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	defer rows.Close()

	var out []*models.Chat
	for rows.Next() {
		var c models.Chat
		if err := rows.Scan(&c.ID, &c.AgentID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan chat: %w", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// --- Interactions (append-only) ------------------------------------------

type interactionStore struct{ *sqlStore }

func (s *interactionStore) Append(ctx context.Context, i *models.Interaction) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.CreatedAt.IsZero() {
		i.CreatedAt = timeNow()
	}
	content, err := marshalJSON(i.Content)
	if err != nil {
		return fmt.Errorf("marshal interaction content: %w", err)
	}
	_, err = s.exec(ctx,
		`INSERT INTO interactions (id, chat_id, content, tainted, taint_reason, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		i.ID, i.ChatID, content, i.Tainted, nullableString(i.TaintReason), i.CreatedAt)
	if err != nil {
		return fmt.Errorf("append interaction: %w", err)
	}
	// touch the parent chat's updated_at so it records the latest activity.
	if _, err := s.exec(ctx, `UPDATE chats SET updated_at = ? WHERE id = ?`, i.CreatedAt, i.ChatID); err != nil {
		return fmt.Errorf("touch chat: %w", err)
	}
	return nil
}

func (s *interactionStore) ListByChatID(ctx context.Context, chatID string) ([]*models.Interaction, error) {
	rows, err := s.query(ctx,
		`SELECT id, chat_id, content, tainted, taint_reason, created_at FROM interactions WHERE chat_id = ? ORDER BY created_at ASC, id ASC`,
		chatID)
	if err != nil {
		return nil, fmt.Errorf("list interactions: %w", err)
	}
	defer rows.Close()

	var out []*models.Interaction
	for rows.Next() {
		var i models.Interaction
		var content string
		var taintReason sql.NullString
		if err := rows.Scan(&i.ID, &i.ChatID, &content, &i.Tainted, &taintReason, &i.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		i.TaintReason = taintReason.String
		parsed, err := unmarshalJSON(content)
		if err != nil {
			return nil, fmt.Errorf("unmarshal interaction content: %w", err)
		}
		i.Content = parsed
		out = append(out, &i)
	}
	return out, rows.Err()
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
