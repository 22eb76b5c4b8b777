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

type ConversationRepo struct {
	pool *pgxpool.Pool
}

func NewConversationRepo(pool *pgxpool.Pool) *ConversationRepo {
	return &ConversationRepo{pool: pool}
}

// ResolveDM relies on the partial unique index on pair_key: the insert
// silently loses if another request created the pair first, and the
// read-back returns whichever row won.
func (r *ConversationRepo) ResolveDM(ctx context.Context, candidate *domain.Conversation, userA, userB uuid.UUID) (*domain.Conversation, error) {
	insert := `
		INSERT INTO conversations (id, kind, pair_key, created_at)
		VALUES ($1, 'dm', $2, $3)
		ON CONFLICT (pair_key) WHERE kind = 'dm' DO NOTHING`
	if _, err := r.pool.Exec(ctx, insert, candidate.ID, candidate.PairKey, candidate.CreatedAt); err != nil {
		return nil, fmt.Errorf("inserting dm conversation: %w", err)
	}

	query := `
		SELECT id, kind, pair_key, group_id, pinned_message_id, removed, created_at
		FROM conversations
		WHERE kind = 'dm' AND pair_key = $1`
	var conv domain.Conversation
	err := r.pool.QueryRow(ctx, query, candidate.PairKey).Scan(
		&conv.ID, &conv.Kind, &conv.PairKey, &conv.GroupID,
		&conv.PinnedMessageID, &conv.Removed, &conv.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("reading back dm conversation: %w", err)
	}

	// Idempotent for both the winner and the loser of the race.
	members := `
		INSERT INTO conversation_participants (conversation_id, user_id, joined_at)
		VALUES ($1, $2, $3), ($1, $4, $3)
		ON CONFLICT DO NOTHING`
	if _, err := r.pool.Exec(ctx, members, conv.ID, userA, time.Now(), userB); err != nil {
		return nil, fmt.Errorf("inserting dm participants: %w", err)
	}

	return &conv, nil
}

func (r *ConversationRepo) Create(ctx context.Context, conv *domain.Conversation, participants []uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	insert := `
		INSERT INTO conversations (id, kind, group_id, created_at)
		VALUES ($1, $2, $3, $4)`
	if _, err := tx.Exec(ctx, insert, conv.ID, conv.Kind, conv.GroupID, conv.CreatedAt); err != nil {
		return fmt.Errorf("inserting conversation: %w", err)
	}

	now := time.Now()
	for _, userID := range participants {
		member := `
			INSERT INTO conversation_participants (conversation_id, user_id, joined_at)
			VALUES ($1, $2, $3)
			ON CONFLICT DO NOTHING`
		if _, err := tx.Exec(ctx, member, conv.ID, userID, now); err != nil {
			return fmt.Errorf("inserting participant: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (r *ConversationRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error) {
	query := `
		SELECT id, kind, pair_key, group_id, pinned_message_id, removed, created_at
		FROM conversations
		WHERE id = $1 AND NOT removed`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

func (r *ConversationRepo) GetByGroup(ctx context.Context, groupID uuid.UUID) (*domain.Conversation, error) {
	query := `
		SELECT id, kind, pair_key, group_id, pinned_message_id, removed, created_at
		FROM conversations
		WHERE group_id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, groupID))
}

func (r *ConversationRepo) scanOne(row pgx.Row) (*domain.Conversation, error) {
	var conv domain.Conversation
	err := row.Scan(
		&conv.ID, &conv.Kind, &conv.PairKey, &conv.GroupID,
		&conv.PinnedMessageID, &conv.Removed, &conv.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return &conv, err
}

func (r *ConversationRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Conversation, error) {
	query := `
		SELECT c.id, c.kind, c.pair_key, c.group_id, c.pinned_message_id, c.removed, c.created_at
		FROM conversations c
		JOIN conversation_participants p ON p.conversation_id = c.id
		WHERE p.user_id = $1 AND NOT c.removed
		ORDER BY c.created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var convs []domain.Conversation
	for rows.Next() {
		var conv domain.Conversation
		if err := rows.Scan(
			&conv.ID, &conv.Kind, &conv.PairKey, &conv.GroupID,
			&conv.PinnedMessageID, &conv.Removed, &conv.CreatedAt,
		); err != nil {
			return nil, err
		}
		convs = append(convs, conv)
	}
	return convs, rows.Err()
}

func (r *ConversationRepo) ListParticipants(ctx context.Context, conversationID uuid.UUID) ([]uuid.UUID, error) {
	query := `
		SELECT user_id FROM conversation_participants
		WHERE conversation_id = $1
		ORDER BY joined_at`

	rows, err := r.pool.Query(ctx, query, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *ConversationRepo) IsParticipant(ctx context.Context, conversationID, userID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM conversation_participants
			WHERE conversation_id = $1 AND user_id = $2
		)`
	var ok bool
	err := r.pool.QueryRow(ctx, query, conversationID, userID).Scan(&ok)
	return ok, err
}

// ApplyParticipantDiff runs both set mutations in one transaction so a
// single synchronize call is all-or-nothing. Across calls convergence
// comes from idempotent retry, not rollback.
func (r *ConversationRepo) ApplyParticipantDiff(ctx context.Context, conversationID uuid.UUID, toAdd, toRemove []uuid.UUID) error {
	if len(toAdd) == 0 && len(toRemove) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	now := time.Now()
	for _, userID := range toAdd {
		insert := `
			INSERT INTO conversation_participants (conversation_id, user_id, joined_at)
			VALUES ($1, $2, $3)
			ON CONFLICT DO NOTHING`
		if _, err := tx.Exec(ctx, insert, conversationID, userID, now); err != nil {
			return fmt.Errorf("adding participant: %w", err)
		}
	}

	if len(toRemove) > 0 {
		remove := `
			DELETE FROM conversation_participants
			WHERE conversation_id = $1 AND user_id = ANY($2)`
		if _, err := tx.Exec(ctx, remove, conversationID, toRemove); err != nil {
			return fmt.Errorf("removing participants: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (r *ConversationRepo) Restore(ctx context.Context, conversationID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE conversations SET removed = FALSE WHERE id = $1`, conversationID)
	return err
}

func (r *ConversationRepo) SetPinned(ctx context.Context, conversationID uuid.UUID, messageID *uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE conversations SET pinned_message_id = $1 WHERE id = $2`, messageID, conversationID)
	return err
}
