package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/campusmate/server/internal/domain/groups"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ groups.Repository = (*GroupRepository)(nil)

type GroupRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

func (r *GroupRepository) queryer() queryer {
	if r.tx != nil {
		return r.tx
	}
	return r.pool
}

func (r *GroupRepository) ListByMember(ctx context.Context, userID uuid.UUID) ([]groups.Group, error) {
	rows, err := r.queryer().Query(ctx, `
SELECT g.id, g.title, array_agg(all_members.user_id) AS members
  FROM groups g
  JOIN group_members m ON m.group_id = g.id AND m.user_id = $1
  JOIN group_members all_members ON all_members.group_id = g.id
 GROUP BY g.id, g.title
 ORDER BY g.id ASC
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var out []groups.Group
	for rows.Next() {
		var group groups.Group
		if err := rows.Scan(&group.ID, &group.Title, &group.Members); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		out = append(out, group)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate groups: %w", err)
	}
	return out, nil
}

func (r *GroupRepository) GetByID(ctx context.Context, id string) (groups.Group, error) {
	row := r.queryer().QueryRow(ctx, `
SELECT g.id, g.title, array_agg(m.user_id) AS members
  FROM groups g
  JOIN group_members m ON m.group_id = g.id
 WHERE g.id = $1
 GROUP BY g.id, g.title
`, id)

	var group groups.Group
	if err := row.Scan(&group.ID, &group.Title, &group.Members); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return groups.Group{}, groups.ErrNotFound
		}
		return groups.Group{}, fmt.Errorf("get group: %w", err)
	}
	return group, nil
}

func (r *GroupRepository) Create(ctx context.Context, group groups.Group) (groups.Group, error) {
	q := r.queryer()

	if _, err := q.Exec(ctx, `
INSERT INTO groups (id, title, created_at)
VALUES ($1, $2, now())
`, group.ID, group.Title); err != nil {
		return groups.Group{}, fmt.Errorf("create group: %w", err)
	}

	for _, memberID := range group.Members {
		if _, err := q.Exec(ctx, `
INSERT INTO group_members (group_id, user_id, added_at)
VALUES ($1, $2, now())
ON CONFLICT DO NOTHING
`, group.ID, memberID); err != nil {
			return groups.Group{}, fmt.Errorf("add initial member: %w", err)
		}
	}
	return group, nil
}

func (r *GroupRepository) AddMember(ctx context.Context, groupID string, userID uuid.UUID) error {
	_, err := r.queryer().Exec(ctx, `
INSERT INTO group_members (group_id, user_id, added_at)
VALUES ($1, $2, now())
ON CONFLICT DO NOTHING
`, groupID, userID)
	if err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}
