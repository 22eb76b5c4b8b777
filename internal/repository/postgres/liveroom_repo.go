package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kindredhq/kindred/internal/domain"
)

type LiveRoomRepo struct {
	pool *pgxpool.Pool
}

func NewLiveRoomRepo(pool *pgxpool.Pool) *LiveRoomRepo {
	return &LiveRoomRepo{pool: pool}
}

func (r *LiveRoomRepo) CreateRoom(ctx context.Context, room *domain.LiveRoom) error {
	query := `
		INSERT INTO live_rooms (id, name, host_id, created_at)
		VALUES ($1, $2, $3, $4)`
	_, err := r.pool.Exec(ctx, query, room.ID, room.Name, room.HostID, room.CreatedAt)
	return err
}

func (r *LiveRoomRepo) GetRoom(ctx context.Context, id uuid.UUID) (*domain.LiveRoom, error) {
	query := `
		SELECT id, name, host_id, created_at
		FROM live_rooms
		WHERE id = $1`
	var room domain.LiveRoom
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&room.ID, &room.Name, &room.HostID, &room.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return &room, err
}

func (r *LiveRoomRepo) CreateInstance(ctx context.Context, inst *domain.Instance) error {
	query := `
		INSERT INTO live_room_instances (id, room_id, status, starts_at, ends_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.pool.Exec(ctx, query,
		inst.ID, inst.RoomID, inst.Status, inst.StartsAt, inst.EndsAt, inst.CreatedAt,
	)
	return err
}

func (r *LiveRoomRepo) GetInstance(ctx context.Context, id uuid.UUID) (*domain.Instance, error) {
	query := `
		SELECT id, room_id, status, starts_at, ends_at, created_at
		FROM live_room_instances
		WHERE id = $1`
	var inst domain.Instance
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&inst.ID, &inst.RoomID, &inst.Status, &inst.StartsAt, &inst.EndsAt, &inst.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if inst.Speakers, err = r.listSet(ctx, "instance_speakers", id); err != nil {
		return nil, err
	}
	if inst.Listeners, err = r.listSet(ctx, "instance_listeners", id); err != nil {
		return nil, err
	}
	return &inst, nil
}

func (r *LiveRoomRepo) listSet(ctx context.Context, table string, instanceID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT user_id FROM `+table+` WHERE instance_id = $1`, instanceID)
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

func (r *LiveRoomRepo) ListInstances(ctx context.Context, roomID uuid.UUID) ([]domain.Instance, error) {
	query := `
		SELECT id, room_id, status, starts_at, ends_at, created_at
		FROM live_room_instances
		WHERE room_id = $1
		ORDER BY starts_at`

	rows, err := r.pool.Query(ctx, query, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var instances []domain.Instance
	for rows.Next() {
		var inst domain.Instance
		if err := rows.Scan(
			&inst.ID, &inst.RoomID, &inst.Status, &inst.StartsAt, &inst.EndsAt, &inst.CreatedAt,
		); err != nil {
			return nil, err
		}
		instances = append(instances, inst)
	}
	return instances, rows.Err()
}

// SetLive is the whole single-live guard: one conditional update instead
// of read-siblings-then-write, so two concurrent go-live requests for
// the same room cannot both succeed.
func (r *LiveRoomRepo) SetLive(ctx context.Context, instanceID, roomID uuid.UUID) (bool, error) {
	query := `
		UPDATE live_room_instances
		SET status = 'live'
		WHERE id = $1
			AND status = 'scheduled'
			AND NOT EXISTS (
				SELECT 1 FROM live_room_instances
				WHERE room_id = $2 AND status = 'live'
			)`
	tag, err := r.pool.Exec(ctx, query, instanceID, roomID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *LiveRoomRepo) SetStatus(ctx context.Context, instanceID uuid.UUID, status string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE live_room_instances SET status = $1 WHERE id = $2`,
		status, instanceID,
	)
	return err
}

func (r *LiveRoomRepo) AddSpeaker(ctx context.Context, instanceID, userID uuid.UUID) error {
	query := `
		INSERT INTO instance_speakers (instance_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`
	_, err := r.pool.Exec(ctx, query, instanceID, userID)
	return err
}

// AddListener skips users already in the speaker set; the PK makes the
// listener insert itself idempotent.
func (r *LiveRoomRepo) AddListener(ctx context.Context, instanceID, userID uuid.UUID) error {
	query := `
		INSERT INTO instance_listeners (instance_id, user_id)
		SELECT $1, $2
		WHERE NOT EXISTS (
			SELECT 1 FROM instance_speakers
			WHERE instance_id = $1 AND user_id = $2
		)
		ON CONFLICT DO NOTHING`
	_, err := r.pool.Exec(ctx, query, instanceID, userID)
	return err
}

func (r *LiveRoomRepo) RemoveListener(ctx context.Context, instanceID, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM instance_listeners WHERE instance_id = $1 AND user_id = $2`,
		instanceID, userID,
	)
	return err
}

func (r *LiveRoomRepo) RemoveListenerFromLive(ctx context.Context, roomID, userID uuid.UUID) error {
	query := `
		DELETE FROM instance_listeners
		WHERE user_id = $2 AND instance_id IN (
			SELECT id FROM live_room_instances
			WHERE room_id = $1 AND status = 'live'
		)`
	_, err := r.pool.Exec(ctx, query, roomID, userID)
	return err
}
