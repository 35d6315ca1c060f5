package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/huddleapp/huddle/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

func (r *MessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	query := `
		INSERT INTO messages (id, chat_id, sender_id, client_key, content, type,
			media_url, media_type, media_size, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.pool.Exec(ctx, query,
		msg.ID, msg.ChatID, msg.SenderID, msg.ClientKey, msg.Content, msg.Type,
		msg.MediaURL, msg.MediaType, msg.MediaSize, msg.CreatedAt, msg.UpdatedAt,
	)
	return err
}

const messageSelect = `
	SELECT m.id, m.chat_id, m.sender_id, m.client_key, m.content, m.type,
		m.media_url, m.media_type, m.media_size, m.edit_history, m.is_edited,
		m.recalled_at, m.deleted_at, m.created_at, m.updated_at,
		u.username, u.display_name
	FROM messages m
	JOIN users u ON m.sender_id = u.id`

func scanMessage(row pgx.Row) (*domain.Message, error) {
	var msg domain.Message
	err := row.Scan(
		&msg.ID, &msg.ChatID, &msg.SenderID, &msg.ClientKey, &msg.Content, &msg.Type,
		&msg.MediaURL, &msg.MediaType, &msg.MediaSize, &msg.EditHistory, &msg.IsEdited,
		&msg.RecalledAt, &msg.DeletedAt, &msg.CreatedAt, &msg.UpdatedAt,
		&msg.SenderUsername, &msg.SenderDisplayName,
	)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *MessageRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	msg, err := scanMessage(r.pool.QueryRow(ctx, messageSelect+` WHERE m.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return msg, err
}

func (r *MessageRepo) ListByChat(ctx context.Context, chatID uuid.UUID, before *uuid.UUID, limit int) ([]domain.Message, error) {
	var query string
	var args []any

	if before != nil {
		query = fmt.Sprintf(messageSelect+`
			WHERE m.chat_id = $1 AND m.deleted_at IS NULL
				AND m.created_at < (SELECT created_at FROM messages WHERE id = $2)
			ORDER BY m.created_at DESC
			LIMIT %d`, limit)
		args = []any{chatID, *before}
	} else {
		query = fmt.Sprintf(messageSelect+`
			WHERE m.chat_id = $1 AND m.deleted_at IS NULL
			ORDER BY m.created_at DESC
			LIMIT %d`, limit)
		args = []any{chatID}
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *msg)
	}

	// Query returns newest first; flip to chronological.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, rows.Err()
}

func (r *MessageRepo) Update(ctx context.Context, msg *domain.Message, expectedUpdatedAt time.Time) (bool, error) {
	query := `
		UPDATE messages
		SET content = $1, edit_history = $2, is_edited = $3, updated_at = $4
		WHERE id = $5 AND updated_at = $6`
	tag, err := r.pool.Exec(ctx, query,
		msg.Content, msg.EditHistory, msg.IsEdited, time.Now(), msg.ID, expectedUpdatedAt,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *MessageRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE messages SET deleted_at = $1 WHERE id = $2`, time.Now(), id)
	return err
}

func (r *MessageRepo) Recall(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE messages SET recalled_at = $1 WHERE id = $2`, time.Now(), id)
	return err
}

func (r *MessageRepo) GetReaction(ctx context.Context, messageID, userID uuid.UUID, emoji string) (*domain.Reaction, error) {
	query := `
		SELECT message_id, user_id, emoji, created_at
		FROM reactions WHERE message_id = $1 AND user_id = $2 AND emoji = $3`
	var re domain.Reaction
	err := r.pool.QueryRow(ctx, query, messageID, userID, emoji).Scan(
		&re.MessageID, &re.UserID, &re.Emoji, &re.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return &re, err
}

func (r *MessageRepo) AddReaction(ctx context.Context, re *domain.Reaction) error {
	query := `
		INSERT INTO reactions (message_id, user_id, emoji, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (message_id, user_id, emoji) DO NOTHING`
	_, err := r.pool.Exec(ctx, query, re.MessageID, re.UserID, re.Emoji, re.CreatedAt)
	return err
}

func (r *MessageRepo) RemoveReaction(ctx context.Context, messageID, userID uuid.UUID, emoji string) error {
	query := `DELETE FROM reactions WHERE message_id = $1 AND user_id = $2 AND emoji = $3`
	_, err := r.pool.Exec(ctx, query, messageID, userID, emoji)
	return err
}

func (r *MessageRepo) ListReactions(ctx context.Context, messageID uuid.UUID) ([]domain.Reaction, error) {
	query := `
		SELECT message_id, user_id, emoji, created_at
		FROM reactions WHERE message_id = $1 ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query, messageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reactions []domain.Reaction
	for rows.Next() {
		var re domain.Reaction
		if err := rows.Scan(&re.MessageID, &re.UserID, &re.Emoji, &re.CreatedAt); err != nil {
			return nil, err
		}
		reactions = append(reactions, re)
	}
	return reactions, rows.Err()
}
