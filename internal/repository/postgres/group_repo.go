package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kindredhq/kindred/internal/domain"
)

type GroupRepo struct {
	pool *pgxpool.Pool
}

func NewGroupRepo(pool *pgxpool.Pool) *GroupRepo {
	return &GroupRepo{pool: pool}
}

func (r *GroupRepo) Create(ctx context.Context, group *domain.Group) error {
	query := `
		INSERT INTO groups (id, name, description, creator_id, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.pool.Exec(ctx, query,
		group.ID, group.Name, group.Description, group.CreatorID, group.CreatedAt,
	)
	return err
}

func (r *GroupRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Group, error) {
	query := `
		SELECT g.id, g.name, g.description, g.creator_id, g.created_at,
			(SELECT COUNT(*) FROM group_members gm WHERE gm.group_id = g.id)
		FROM groups g
		WHERE g.id = $1`
	var group domain.Group
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&group.ID, &group.Name, &group.Description, &group.CreatorID,
		&group.CreatedAt, &group.MemberCount,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return &group, err
}

func (r *GroupRepo) AddMember(ctx context.Context, member *domain.GroupMember) error {
	query := `
		INSERT INTO group_members (group_id, user_id, is_admin, joined_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT DO NOTHING`
	_, err := r.pool.Exec(ctx, query,
		member.GroupID, member.UserID, member.IsAdmin, member.JoinedAt,
	)
	return err
}

func (r *GroupRepo) RemoveMember(ctx context.Context, groupID, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM group_members WHERE group_id = $1 AND user_id = $2`,
		groupID, userID,
	)
	return err
}

func (r *GroupRepo) GetMember(ctx context.Context, groupID, userID uuid.UUID) (*domain.GroupMember, error) {
	query := `
		SELECT group_id, user_id, is_admin, joined_at
		FROM group_members
		WHERE group_id = $1 AND user_id = $2`
	var member domain.GroupMember
	err := r.pool.QueryRow(ctx, query, groupID, userID).Scan(
		&member.GroupID, &member.UserID, &member.IsAdmin, &member.JoinedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return &member, err
}

func (r *GroupRepo) ListMembers(ctx context.Context, groupID uuid.UUID) ([]domain.GroupMember, error) {
	query := `
		SELECT gm.group_id, gm.user_id, gm.is_admin, gm.joined_at, u.username, u.display_name
		FROM group_members gm
		JOIN users u ON gm.user_id = u.id
		WHERE gm.group_id = $1
		ORDER BY gm.joined_at`

	rows, err := r.pool.Query(ctx, query, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []domain.GroupMember
	for rows.Next() {
		var member domain.GroupMember
		if err := rows.Scan(
			&member.GroupID, &member.UserID, &member.IsAdmin, &member.JoinedAt,
			&member.Username, &member.DisplayName,
		); err != nil {
			return nil, err
		}
		members = append(members, member)
	}
	return members, rows.Err()
}
