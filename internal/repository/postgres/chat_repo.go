package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/huddleapp/huddle/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ChatRepo struct {
	pool *pgxpool.Pool
}

func NewChatRepo(pool *pgxpool.Pool) *ChatRepo {
	return &ChatRepo{pool: pool}
}

func (r *ChatRepo) Create(ctx context.Context, chat *domain.Chat) error {
	query := `
		INSERT INTO chats (id, name, description, department_id, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.pool.Exec(ctx, query,
		chat.ID, chat.Name, chat.Description, chat.DepartmentID, chat.CreatedBy, chat.CreatedAt,
	)
	return err
}

func (r *ChatRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Chat, error) {
	query := `
		SELECT id, name, description, department_id, created_by, created_at, archived_at
		FROM chats WHERE id = $1`
	var c domain.Chat
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.Name, &c.Description, &c.DepartmentID, &c.CreatedBy, &c.CreatedAt, &c.ArchivedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return &c, err
}

func (r *ChatRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Chat, error) {
	query := `
		SELECT c.id, c.name, c.description, c.department_id, c.created_by, c.created_at, c.archived_at
		FROM chats c
		JOIN chat_members cm ON cm.chat_id = c.id
		WHERE cm.user_id = $1 AND c.archived_at IS NULL
		ORDER BY c.name`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chats []domain.Chat
	for rows.Next() {
		var c domain.Chat
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.DepartmentID, &c.CreatedBy, &c.CreatedAt, &c.ArchivedAt); err != nil {
			return nil, err
		}
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

func (r *ChatRepo) Archive(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE chats SET archived_at = $1 WHERE id = $2`, time.Now(), id)
	return err
}

func (r *ChatRepo) AddMember(ctx context.Context, member *domain.ChatMember) error {
	query := `
		INSERT INTO chat_members (chat_id, user_id, joined_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (chat_id, user_id) DO NOTHING`
	_, err := r.pool.Exec(ctx, query, member.ChatID, member.UserID, member.JoinedAt)
	return err
}

func (r *ChatRepo) RemoveMember(ctx context.Context, chatID, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM chat_members WHERE chat_id = $1 AND user_id = $2`, chatID, userID)
	return err
}

func (r *ChatRepo) GetMember(ctx context.Context, chatID, userID uuid.UUID) (*domain.ChatMember, error) {
	query := `
		SELECT chat_id, user_id, last_read_msg_id, joined_at
		FROM chat_members WHERE chat_id = $1 AND user_id = $2`
	var m domain.ChatMember
	err := r.pool.QueryRow(ctx, query, chatID, userID).Scan(
		&m.ChatID, &m.UserID, &m.LastReadMsgID, &m.JoinedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return &m, err
}

func (r *ChatRepo) UpdateLastRead(ctx context.Context, chatID, userID, messageID uuid.UUID) error {
	query := `
		UPDATE chat_members SET last_read_msg_id = $1
		WHERE chat_id = $2 AND user_id = $3`
	_, err := r.pool.Exec(ctx, query, messageID, chatID, userID)
	return err
}

func (r *ChatRepo) ListMembers(ctx context.Context, chatID uuid.UUID) ([]domain.ChatMember, error) {
	query := `
		SELECT cm.chat_id, cm.user_id, cm.last_read_msg_id, cm.joined_at, u.username, u.display_name
		FROM chat_members cm
		JOIN users u ON cm.user_id = u.id
		WHERE cm.chat_id = $1
		ORDER BY cm.joined_at`
	rows, err := r.pool.Query(ctx, query, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []domain.ChatMember
	for rows.Next() {
		var m domain.ChatMember
		if err := rows.Scan(&m.ChatID, &m.UserID, &m.LastReadMsgID, &m.JoinedAt, &m.Username, &m.DisplayName); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}
