package repository

import (
	"context"
	"database/sql"
	"fmt"
)

type FollowsRepository struct {
	db *sql.DB
}

func NewFollowsRepository(db *sql.DB) *FollowsRepository {
	return &FollowsRepository{db: db}
}

// Follow records the relation and reports whether it is new.
func (r *FollowsRepository) Follow(ctx context.Context, followerID, followedID int) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO follows (follower_id, followed_id, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (follower_id, followed_id) DO NOTHING
	`, followerID, followedID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *FollowsRepository) Unfollow(ctx context.Context, followerID, followedID int) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM follows
		WHERE follower_id = $1 AND followed_id = $2
	`, followerID, followedID)
	if err != nil {
		return err
	}
	return expectAffected(res, fmt.Sprintf("follow %d->%d", followerID, followedID))
}

func (r *FollowsRepository) ListFollowed(ctx context.Context, authorID int) ([]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT followed_id
		FROM follows
		WHERE follower_id = $1
		ORDER BY followed_id
	`, authorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []int{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
