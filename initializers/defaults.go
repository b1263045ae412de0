package initializers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// DefaultSystemUsername owns every system message.
const DefaultSystemUsername = "storyfeed"

type Defaults struct {
	SystemAuthorID int
}

// InitDefaults is called once on application start to ensure that the
// rows the service relies on exist.
func InitDefaults(ctx context.Context, db *sql.DB, systemUsername string) (Defaults, error) {
	if systemUsername == "" {
		systemUsername = DefaultSystemUsername
	}
	id, err := ensureAuthor(ctx, db, systemUsername)
	if err != nil {
		return Defaults{}, fmt.Errorf("ensure system author: %w", err)
	}
	return Defaults{SystemAuthorID: id}, nil
}

func ensureAuthor(ctx context.Context, db *sql.DB, username string) (int, error) {
	var id int
	err := db.QueryRowContext(ctx, "SELECT id FROM authors WHERE username = $1", username).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		err = db.QueryRowContext(ctx, "INSERT INTO authors (username) VALUES ($1) RETURNING id", username).Scan(&id)
		if err != nil {
			return 0, err
		}
	} else if err != nil {
		return 0, err
	}
	return id, nil
}
