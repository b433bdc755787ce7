package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"hoursly/internal/common"
	"hoursly/internal/domain/model"
)

type OfficeHourRepository interface {
	CreateOfficeHour(ctx context.Context, oh *model.OfficeHour) error
	GetOfficeHour(ctx context.Context, id int64) (*model.OfficeHour, error)
	ListOfficeHoursByCourse(ctx context.Context, courseID int64) ([]model.OfficeHour, error)
	ListOfficeHoursByTA(ctx context.Context, taID int64) ([]model.OfficeHour, error)

	// CreateSavedOfficeHour fails with common.ErrAlreadyExists when the pair is already saved.
	CreateSavedOfficeHour(ctx context.Context, s *model.SavedOfficeHour) error
	// DeleteSavedOfficeHour fails with common.ErrNotFound when the pair was never saved.
	DeleteSavedOfficeHour(ctx context.Context, userID, officeHourID int64) error
	ListSavedOfficeHoursByUser(ctx context.Context, userID int64) ([]model.SavedOfficeHour, error)
}

const officeHourColumns = `id, day, start_time, end_time, location, course_id, ta_id`

func (t *pgTx) CreateOfficeHour(ctx context.Context, oh *model.OfficeHour) error {
	query := `INSERT INTO office_hours (day, start_time, end_time, location, course_id, ta_id)
	          VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	err := t.tx.QueryRowContext(ctx, query, oh.Day, oh.StartTime, oh.EndTime, oh.Location, oh.CourseID, oh.TAID).Scan(&oh.ID)
	if err != nil {
		return writeErr("pgStore.CreateOfficeHour", err)
	}
	return nil
}

func (t *pgTx) GetOfficeHour(ctx context.Context, id int64) (*model.OfficeHour, error) {
	query := `SELECT ` + officeHourColumns + ` FROM office_hours WHERE id = $1`
	oh := &model.OfficeHour{}
	err := t.tx.QueryRowContext(ctx, query, id).Scan(
		&oh.ID, &oh.Day, &oh.StartTime, &oh.EndTime, &oh.Location, &oh.CourseID, &oh.TAID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgStore.GetOfficeHour: %w", err)
	}
	return oh, nil
}

func (t *pgTx) ListOfficeHoursByCourse(ctx context.Context, courseID int64) ([]model.OfficeHour, error) {
	return t.listOfficeHours(ctx, "pgStore.ListOfficeHoursByCourse",
		`SELECT `+officeHourColumns+` FROM office_hours WHERE course_id = $1 ORDER BY id`, courseID)
}

func (t *pgTx) ListOfficeHoursByTA(ctx context.Context, taID int64) ([]model.OfficeHour, error) {
	return t.listOfficeHours(ctx, "pgStore.ListOfficeHoursByTA",
		`SELECT `+officeHourColumns+` FROM office_hours WHERE ta_id = $1 ORDER BY id`, taID)
}

func (t *pgTx) listOfficeHours(ctx context.Context, op, query string, arg int64) ([]model.OfficeHour, error) {
	rows, err := t.tx.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("%s query: %w", op, err)
	}
	defer rows.Close()

	hours := []model.OfficeHour{}
	for rows.Next() {
		var oh model.OfficeHour
		if err := rows.Scan(&oh.ID, &oh.Day, &oh.StartTime, &oh.EndTime, &oh.Location, &oh.CourseID, &oh.TAID); err != nil {
			return nil, fmt.Errorf("%s scan: %w", op, err)
		}
		hours = append(hours, oh)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s rows.Err: %w", op, err)
	}
	return hours, nil
}

// The UNIQUE (user_id, oh_id) constraint decides races between concurrent saves.
func (t *pgTx) CreateSavedOfficeHour(ctx context.Context, s *model.SavedOfficeHour) error {
	query := `INSERT INTO saved_office_hours (user_id, oh_id) VALUES ($1, $2) RETURNING id, created_at`
	if err := t.tx.QueryRowContext(ctx, query, s.UserID, s.OfficeHourID).Scan(&s.ID, &s.CreatedAt); err != nil {
		return writeErr("pgStore.CreateSavedOfficeHour", err)
	}
	return nil
}

func (t *pgTx) DeleteSavedOfficeHour(ctx context.Context, userID, officeHourID int64) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM saved_office_hours WHERE user_id = $1 AND oh_id = $2`, userID, officeHourID)
	if err != nil {
		return fmt.Errorf("pgStore.DeleteSavedOfficeHour: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("pgStore.DeleteSavedOfficeHour: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (t *pgTx) ListSavedOfficeHoursByUser(ctx context.Context, userID int64) ([]model.SavedOfficeHour, error) {
	query := `SELECT id, user_id, oh_id, created_at FROM saved_office_hours WHERE user_id = $1 ORDER BY oh_id`
	rows, err := t.tx.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("pgStore.ListSavedOfficeHoursByUser query: %w", err)
	}
	defer rows.Close()

	saved := []model.SavedOfficeHour{}
	for rows.Next() {
		var s model.SavedOfficeHour
		if err := rows.Scan(&s.ID, &s.UserID, &s.OfficeHourID, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("pgStore.ListSavedOfficeHoursByUser scan: %w", err)
		}
		saved = append(saved, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgStore.ListSavedOfficeHoursByUser rows.Err: %w", err)
	}
	return saved, nil
}
