package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"hoursly/internal/common"
	"hoursly/internal/domain/model"
)

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, id int64) (*model.User, error)
	// DeleteUser removes the user with its memberships, saved office hours
	// and the office hours it holds as TA.
	DeleteUser(ctx context.Context, id int64) error
}

func (t *pgTx) CreateUser(ctx context.Context, user *model.User) error {
	query := `INSERT INTO users (name, netid) VALUES ($1, $2) RETURNING id`
	if err := t.tx.QueryRowContext(ctx, query, user.Name, user.NetID).Scan(&user.ID); err != nil {
		return fmt.Errorf("pgStore.CreateUser: %w", err)
	}
	return nil
}

func (t *pgTx) GetUser(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT id, name, netid FROM users WHERE id = $1`
	user := &model.User{}
	err := t.tx.QueryRowContext(ctx, query, id).Scan(&user.ID, &user.Name, &user.NetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgStore.GetUser: %w", err)
	}
	return user, nil
}

// Dependent rows go through ON DELETE CASCADE.
func (t *pgTx) DeleteUser(ctx context.Context, id int64) error {
	return t.deleteByID(ctx, "users", id)
}
