package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kindredhq/kindred/internal/domain"
)

type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

func (r *MessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	query := `
		INSERT INTO messages (id, conversation_id, sender_id, ciphertext, iv, tag, kind, share_ref, reply_to_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.pool.Exec(ctx, query,
		msg.ID, msg.ConversationID, msg.SenderID, msg.Ciphertext, msg.IV, msg.Tag,
		msg.Kind, msg.ShareRef, msg.ReplyToID, msg.CreatedAt,
	)
	return err
}

func (r *MessageRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	query := `
		SELECT m.id, m.conversation_id, m.sender_id, m.ciphertext, m.iv, m.tag,
			m.kind, m.share_ref, m.reply_to_id, m.deleted_for_everyone,
			m.edited_at, m.created_at, u.username, u.display_name
		FROM messages m
		JOIN users u ON m.sender_id = u.id
		WHERE m.id = $1`
	var msg domain.Message
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.Ciphertext, &msg.IV, &msg.Tag,
		&msg.Kind, &msg.ShareRef, &msg.ReplyToID, &msg.DeletedForEveryone,
		&msg.EditedAt, &msg.CreatedAt, &msg.SenderUsername, &msg.SenderDisplayName,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return &msg, err
}

func (r *MessageRepo) ListByConversation(ctx context.Context, conversationID, viewerID uuid.UUID, before *uuid.UUID, limit int) ([]domain.Message, error) {
	var query string
	var args []any

	if before != nil {
		query = fmt.Sprintf(`
			SELECT m.id, m.conversation_id, m.sender_id, m.ciphertext, m.iv, m.tag,
				m.kind, m.share_ref, m.reply_to_id, m.deleted_for_everyone,
				m.edited_at, m.created_at, u.username, u.display_name
			FROM messages m
			JOIN users u ON m.sender_id = u.id
			WHERE m.conversation_id = $1
				AND NOT EXISTS (
					SELECT 1 FROM message_hidden h
					WHERE h.message_id = m.id AND h.user_id = $2
				)
				AND m.created_at < (SELECT created_at FROM messages WHERE id = $3)
			ORDER BY m.created_at DESC
			LIMIT %d`, limit)
		args = []any{conversationID, viewerID, *before}
	} else {
		query = fmt.Sprintf(`
			SELECT m.id, m.conversation_id, m.sender_id, m.ciphertext, m.iv, m.tag,
				m.kind, m.share_ref, m.reply_to_id, m.deleted_for_everyone,
				m.edited_at, m.created_at, u.username, u.display_name
			FROM messages m
			JOIN users u ON m.sender_id = u.id
			WHERE m.conversation_id = $1
				AND NOT EXISTS (
					SELECT 1 FROM message_hidden h
					WHERE h.message_id = m.id AND h.user_id = $2
				)
			ORDER BY m.created_at DESC
			LIMIT %d`, limit)
		args = []any{conversationID, viewerID}
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(
			&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.Ciphertext, &msg.IV, &msg.Tag,
			&msg.Kind, &msg.ShareRef, &msg.ReplyToID, &msg.DeletedForEveryone,
			&msg.EditedAt, &msg.CreatedAt, &msg.SenderUsername, &msg.SenderDisplayName,
		); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}

	// Reverse to chronological order (query returns DESC)
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, rows.Err()
}

func (r *MessageRepo) UpdateContent(ctx context.Context, msg *domain.Message) error {
	query := `
		UPDATE messages
		SET ciphertext = $1, iv = $2, tag = $3, kind = $4, share_ref = $5, edited_at = $6
		WHERE id = $7`
	_, err := r.pool.Exec(ctx, query,
		msg.Ciphertext, msg.IV, msg.Tag, msg.Kind, msg.ShareRef, time.Now(), msg.ID,
	)
	return err
}

func (r *MessageRepo) HideForUser(ctx context.Context, messageID, userID uuid.UUID) error {
	query := `
		INSERT INTO message_hidden (message_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`
	_, err := r.pool.Exec(ctx, query, messageID, userID)
	return err
}

func (r *MessageRepo) DeleteForEveryone(ctx context.Context, messageID uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	clear := `
		UPDATE messages
		SET ciphertext = NULL, iv = NULL, tag = NULL, deleted_for_everyone = TRUE
		WHERE id = $1`
	if _, err := tx.Exec(ctx, clear, messageID); err != nil {
		return fmt.Errorf("clearing message: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM message_reactions WHERE message_id = $1`, messageID); err != nil {
		return fmt.Errorf("clearing reactions: %w", err)
	}

	return tx.Commit(ctx)
}

// ToggleReaction inserts the (user, emoji) pair, or removes it when the
// insert conflicts with an existing row.
func (r *MessageRepo) ToggleReaction(ctx context.Context, messageID, userID uuid.UUID, emoji string) (bool, error) {
	insert := `
		INSERT INTO message_reactions (message_id, user_id, emoji, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT DO NOTHING`
	tag, err := r.pool.Exec(ctx, insert, messageID, userID, emoji, time.Now())
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	remove := `
		DELETE FROM message_reactions
		WHERE message_id = $1 AND user_id = $2 AND emoji = $3`
	_, err = r.pool.Exec(ctx, remove, messageID, userID, emoji)
	return false, err
}

func (r *MessageRepo) MarkRead(ctx context.Context, messageID, userID uuid.UUID, readAt time.Time) (bool, error) {
	query := `
		INSERT INTO message_reads (message_id, user_id, read_at)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING`
	tag, err := r.pool.Exec(ctx, query, messageID, userID, readAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *MessageRepo) ListReactions(ctx context.Context, messageID uuid.UUID) ([]domain.Reaction, error) {
	query := `
		SELECT message_id, user_id, emoji, created_at
		FROM message_reactions
		WHERE message_id = $1
		ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, messageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanReactions(rows)
}

func (r *MessageRepo) ListReactionsByConversation(ctx context.Context, conversationID uuid.UUID) ([]domain.Reaction, error) {
	query := `
		SELECT re.message_id, re.user_id, re.emoji, re.created_at
		FROM message_reactions re
		JOIN messages m ON re.message_id = m.id
		WHERE m.conversation_id = $1
		ORDER BY re.created_at`

	rows, err := r.pool.Query(ctx, query, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanReactions(rows)
}

func scanReactions(rows pgx.Rows) ([]domain.Reaction, error) {
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
