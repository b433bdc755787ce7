package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"hoursly/internal/common"
	"hoursly/internal/domain/model"
)

type MembershipRepository interface {
	// UpsertMembership creates the (UserID, CourseID) membership or replaces
	// the role of the existing one. m is filled with the stored row.
	UpsertMembership(ctx context.Context, m *model.Membership) error
	GetMembership(ctx context.Context, userID, courseID int64) (*model.Membership, error)
	ListMembershipsByCourse(ctx context.Context, courseID int64) ([]model.Membership, error)
	ListMembershipsByUser(ctx context.Context, userID int64) ([]model.Membership, error)
}

const membershipColumns = `id, user_id, course_id, role, created_at, updated_at`

// updated_at only moves when the role actually changes.
func (t *pgTx) UpsertMembership(ctx context.Context, m *model.Membership) error {
	query := `INSERT INTO memberships (user_id, course_id, role) VALUES ($1, $2, $3)
	          ON CONFLICT (user_id, course_id) DO UPDATE SET
	              role = EXCLUDED.role,
	              updated_at = CASE WHEN memberships.role = EXCLUDED.role
	                                THEN memberships.updated_at ELSE NOW() END
	          RETURNING ` + membershipColumns
	err := t.tx.QueryRowContext(ctx, query, m.UserID, m.CourseID, m.Role).Scan(
		&m.ID, &m.UserID, &m.CourseID, &m.Role, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return writeErr("pgStore.UpsertMembership", err)
	}
	return nil
}

func (t *pgTx) GetMembership(ctx context.Context, userID, courseID int64) (*model.Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM memberships WHERE user_id = $1 AND course_id = $2`
	m := &model.Membership{}
	err := t.tx.QueryRowContext(ctx, query, userID, courseID).Scan(
		&m.ID, &m.UserID, &m.CourseID, &m.Role, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgStore.GetMembership: %w", err)
	}
	return m, nil
}

func (t *pgTx) ListMembershipsByCourse(ctx context.Context, courseID int64) ([]model.Membership, error) {
	return t.listMemberships(ctx, "pgStore.ListMembershipsByCourse",
		`SELECT `+membershipColumns+` FROM memberships WHERE course_id = $1 ORDER BY user_id`, courseID)
}

func (t *pgTx) ListMembershipsByUser(ctx context.Context, userID int64) ([]model.Membership, error) {
	return t.listMemberships(ctx, "pgStore.ListMembershipsByUser",
		`SELECT `+membershipColumns+` FROM memberships WHERE user_id = $1 ORDER BY course_id`, userID)
}

func (t *pgTx) listMemberships(ctx context.Context, op, query string, arg int64) ([]model.Membership, error) {
	rows, err := t.tx.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("%s query: %w", op, err)
	}
	defer rows.Close()

	memberships := []model.Membership{}
	for rows.Next() {
		var m model.Membership
		if err := rows.Scan(&m.ID, &m.UserID, &m.CourseID, &m.Role, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%s scan: %w", op, err)
		}
		memberships = append(memberships, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s rows.Err: %w", op, err)
	}
	return memberships, nil
}
