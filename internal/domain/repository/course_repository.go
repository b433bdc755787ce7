package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"hoursly/internal/common"
	"hoursly/internal/domain/model"
)

type CourseRepository interface {
	CreateCourse(ctx context.Context, course *model.Course) error
	GetCourse(ctx context.Context, id int64) (*model.Course, error)
	// GetCourseBySlug returns the oldest course whose code normalizes to slug.
	GetCourseBySlug(ctx context.Context, slug string) (*model.Course, error)
	ListCourses(ctx context.Context) ([]model.Course, error)
	// DeleteCourse removes the course with its assignments, memberships,
	// office hours and every saved record pointing at those office hours.
	DeleteCourse(ctx context.Context, id int64) error
}

type AssignmentRepository interface {
	CreateAssignment(ctx context.Context, a *model.Assignment) error
	GetAssignment(ctx context.Context, id int64) (*model.Assignment, error)
	ListAssignmentsByCourse(ctx context.Context, courseID int64) ([]model.Assignment, error)
}

func (t *pgTx) CreateCourse(ctx context.Context, c *model.Course) error {
	query := `INSERT INTO courses (code, name, slug) VALUES ($1, $2, $3) RETURNING id`
	if err := t.tx.QueryRowContext(ctx, query, c.Code, c.Name, c.Slug).Scan(&c.ID); err != nil {
		return fmt.Errorf("pgStore.CreateCourse: %w", err)
	}
	return nil
}

func (t *pgTx) GetCourse(ctx context.Context, id int64) (*model.Course, error) {
	return t.scanCourse(ctx, "pgStore.GetCourse",
		`SELECT id, code, name, slug FROM courses WHERE id = $1`, id)
}

func (t *pgTx) GetCourseBySlug(ctx context.Context, slug string) (*model.Course, error) {
	return t.scanCourse(ctx, "pgStore.GetCourseBySlug",
		`SELECT id, code, name, slug FROM courses WHERE slug = $1 ORDER BY id LIMIT 1`, slug)
}

func (t *pgTx) scanCourse(ctx context.Context, op, query string, arg interface{}) (*model.Course, error) {
	c := &model.Course{}
	err := t.tx.QueryRowContext(ctx, query, arg).Scan(&c.ID, &c.Code, &c.Name, &c.Slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

func (t *pgTx) ListCourses(ctx context.Context) ([]model.Course, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT id, code, name, slug FROM courses ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("pgStore.ListCourses query: %w", err)
	}
	defer rows.Close()

	courses := []model.Course{}
	for rows.Next() {
		var c model.Course
		if err := rows.Scan(&c.ID, &c.Code, &c.Name, &c.Slug); err != nil {
			return nil, fmt.Errorf("pgStore.ListCourses scan: %w", err)
		}
		courses = append(courses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgStore.ListCourses rows.Err: %w", err)
	}
	return courses, nil
}

func (t *pgTx) DeleteCourse(ctx context.Context, id int64) error {
	return t.deleteByID(ctx, "courses", id)
}

func (t *pgTx) CreateAssignment(ctx context.Context, a *model.Assignment) error {
	query := `INSERT INTO assignments (title, due_date, course_id) VALUES ($1, $2, $3) RETURNING id`
	if err := t.tx.QueryRowContext(ctx, query, a.Title, a.DueDate, a.CourseID).Scan(&a.ID); err != nil {
		return writeErr("pgStore.CreateAssignment", err)
	}
	return nil
}

func (t *pgTx) GetAssignment(ctx context.Context, id int64) (*model.Assignment, error) {
	query := `SELECT id, title, due_date, course_id FROM assignments WHERE id = $1`
	a := &model.Assignment{}
	err := t.tx.QueryRowContext(ctx, query, id).Scan(&a.ID, &a.Title, &a.DueDate, &a.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgStore.GetAssignment: %w", err)
	}
	return a, nil
}

func (t *pgTx) ListAssignmentsByCourse(ctx context.Context, courseID int64) ([]model.Assignment, error) {
	query := `SELECT id, title, due_date, course_id FROM assignments WHERE course_id = $1 ORDER BY id`
	rows, err := t.tx.QueryContext(ctx, query, courseID)
	if err != nil {
		return nil, fmt.Errorf("pgStore.ListAssignmentsByCourse query: %w", err)
	}
	defer rows.Close()

	assignments := []model.Assignment{}
	for rows.Next() {
		var a model.Assignment
		if err := rows.Scan(&a.ID, &a.Title, &a.DueDate, &a.CourseID); err != nil {
			return nil, fmt.Errorf("pgStore.ListAssignmentsByCourse scan: %w", err)
		}
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgStore.ListAssignmentsByCourse rows.Err: %w", err)
	}
	return assignments, nil
}
