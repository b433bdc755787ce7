package service

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"hoursly/internal/app/view"
	"hoursly/internal/common"
	"hoursly/internal/domain/model"
	"hoursly/internal/domain/repository"
)

type CourseService struct {
	base
}

func NewCourseService(store repository.Store, cache ViewCache, logger *zap.Logger) *CourseService {
	return &CourseService{base{store: store, cache: cache, logger: logger}}
}

type CreateCourseRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type AddUserRequest struct {
	UserID *int64 `json:"user_id"`
	Type   string `json:"type"`
}

type CreateAssignmentRequest struct {
	Title string `json:"title"`
	// DueDate holds whatever the client sent; see parseDueDate.
	DueDate any `json:"due_date"`
}

type CreateOfficeHourRequest struct {
	Day       string `json:"day"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Location  string `json:"location"`
	TAID      *int64 `json:"ta_id"`
}

func (s *CourseService) ListCourses(ctx context.Context) ([]view.CourseView, error) {
	out, err := readThrough(ctx, &s.base, "courses", func(tx repository.Tx) (*[]view.CourseView, error) {
		courses, err := tx.ListCourses(ctx)
		if err != nil {
			return nil, err
		}
		views := make([]view.CourseView, 0, len(courses))
		for i := range courses {
			cv, err := view.Course(ctx, tx, &courses[i], view.Full)
			if err != nil {
				return nil, err
			}
			views = append(views, *cv)
		}
		return &views, nil
	})
	if err != nil {
		return nil, err
	}
	return *out, nil
}

func (s *CourseService) CreateCourse(ctx context.Context, req CreateCourseRequest) (*view.CourseView, error) {
	if req.Code == "" || req.Name == "" {
		return nil, common.NewError(common.ErrInvalidInput, "Missing one or more required fields (code, name)!")
	}

	var out *view.CourseView
	err := s.mutate(ctx, "CreateCourse", func(tx repository.Tx) error {
		course := &model.Course{Code: req.Code, Name: req.Name, Slug: model.CourseSlug(req.Code)}
		if err := tx.CreateCourse(ctx, course); err != nil {
			return err
		}
		var err error
		out, err = view.Course(ctx, tx, course, view.Full)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *CourseService) GetCourse(ctx context.Context, id int64) (*view.CourseView, error) {
	return readThrough(ctx, &s.base, "course:"+strconv.FormatInt(id, 10), func(tx repository.Tx) (*view.CourseView, error) {
		course, err := tx.GetCourse(ctx, id)
		if err != nil {
			return nil, notFound(err, errCourseNotFound)
		}
		return view.Course(ctx, tx, course, view.Full)
	})
}

// GetCourseByCode finds a course by its code, ignoring case and spacing.
func (s *CourseService) GetCourseByCode(ctx context.Context, code string) (*view.CourseView, error) {
	key := model.CourseSlug(code)
	if key == "" {
		return nil, errCourseNotFound
	}
	return readThrough(ctx, &s.base, "course_code:"+key, func(tx repository.Tx) (*view.CourseView, error) {
		course, err := tx.GetCourseBySlug(ctx, key)
		if err != nil {
			return nil, notFound(err, errCourseNotFound)
		}
		return view.Course(ctx, tx, course, view.Full)
	})
}

// DeleteCourse removes the course with everything it owns and returns the
// view taken before the delete.
func (s *CourseService) DeleteCourse(ctx context.Context, id int64) (*view.CourseView, error) {
	var out *view.CourseView
	err := s.mutate(ctx, "DeleteCourse", func(tx repository.Tx) error {
		course, err := tx.GetCourse(ctx, id)
		if err != nil {
			return notFound(err, errCourseNotFound)
		}
		if out, err = view.Course(ctx, tx, course, view.Full); err != nil {
			return err
		}
		return tx.DeleteCourse(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AddUser associates a user with the course under a role. Re-adding the
// same user replaces the role in place.
func (s *CourseService) AddUser(ctx context.Context, courseID int64, req AddUserRequest) (*view.CourseView, error) {
	var out *view.CourseView
	err := s.mutate(ctx, "AddUser", func(tx repository.Tx) error {
		course, err := tx.GetCourse(ctx, courseID)
		if err != nil {
			return notFound(err, errCourseNotFound)
		}
		if req.UserID == nil || req.Type == "" {
			return common.NewError(common.ErrInvalidInput, "Missing required fields (user_id, type)!")
		}
		if _, err := tx.GetUser(ctx, *req.UserID); err != nil {
			return notFound(err, errUserNotFound)
		}
		role, ok := model.ParseRole(req.Type)
		if !ok {
			return common.NewError(common.ErrInvalidInput, "Invalid user type!")
		}

		m := &model.Membership{UserID: *req.UserID, CourseID: courseID, Role: role}
		if err := tx.UpsertMembership(ctx, m); err != nil {
			return err
		}
		out, err = view.Course(ctx, tx, course, view.Full)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *CourseService) CreateAssignment(ctx context.Context, courseID int64, req CreateAssignmentRequest) (*view.AssignmentView, error) {
	var out *view.AssignmentView
	err := s.mutate(ctx, "CreateAssignment", func(tx repository.Tx) error {
		if _, err := tx.GetCourse(ctx, courseID); err != nil {
			return notFound(err, errCourseNotFound)
		}
		if req.Title == "" || req.DueDate == nil {
			return common.NewError(common.ErrInvalidInput, "Missing one or more required fields (title, due_date)!")
		}
		due, ok := parseDueDate(req.DueDate)
		if !ok {
			return common.NewError(common.ErrInvalidInput, "Due date must be an integer (UNIX timestamp)!")
		}

		a := &model.Assignment{Title: req.Title, DueDate: due, CourseID: courseID}
		if err := tx.CreateAssignment(ctx, a); err != nil {
			return err
		}
		var err error
		out, err = view.Assignment(ctx, tx, a, view.Full)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *CourseService) GetAssignment(ctx context.Context, id int64) (*view.AssignmentView, error) {
	return readThrough(ctx, &s.base, "assignment:"+strconv.FormatInt(id, 10), func(tx repository.Tx) (*view.AssignmentView, error) {
		a, err := tx.GetAssignment(ctx, id)
		if err != nil {
			return nil, notFound(err, errAssignmentNotFound)
		}
		return view.Assignment(ctx, tx, a, view.Full)
	})
}

// CreateOfficeHour adds an office hour slot held by a TA of the course.
// A user without the TA role in the course is Forbidden, not NotFound.
func (s *CourseService) CreateOfficeHour(ctx context.Context, courseID int64, req CreateOfficeHourRequest) (*view.OfficeHourView, error) {
	var out *view.OfficeHourView
	err := s.mutate(ctx, "CreateOfficeHour", func(tx repository.Tx) error {
		if _, err := tx.GetCourse(ctx, courseID); err != nil {
			return notFound(err, errCourseNotFound)
		}
		if req.Day == "" || req.StartTime == "" || req.EndTime == "" || req.Location == "" || req.TAID == nil {
			return common.NewError(common.ErrInvalidInput,
				"Missing one or more required fields (day, start_time, end_time, location, ta_id)!")
		}
		if _, err := tx.GetUser(ctx, *req.TAID); err != nil {
			return notFound(err, errUserNotFound)
		}
		m, err := tx.GetMembership(ctx, *req.TAID, courseID)
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			return err
		}
		if m == nil || m.Role != model.RoleTA {
			return common.NewError(common.ErrForbidden, "User is not a TA for this course!")
		}

		oh := &model.OfficeHour{
			Day:       req.Day,
			StartTime: req.StartTime,
			EndTime:   req.EndTime,
			Location:  req.Location,
			CourseID:  courseID,
			TAID:      *req.TAID,
		}
		if err := tx.CreateOfficeHour(ctx, oh); err != nil {
			return err
		}
		out, err = view.OfficeHour(ctx, tx, oh, view.Full)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *CourseService) GetOfficeHour(ctx context.Context, id int64) (*view.OfficeHourView, error) {
	return readThrough(ctx, &s.base, "officehour:"+strconv.FormatInt(id, 10), func(tx repository.Tx) (*view.OfficeHourView, error) {
		oh, err := tx.GetOfficeHour(ctx, id)
		if err != nil {
			return nil, notFound(err, errOfficeHourNotFound)
		}
		return view.OfficeHour(ctx, tx, oh, view.Full)
	})
}

// parseDueDate accepts integers, integral floats and decimal strings.
func parseDueDate(v any) (int64, bool) {
	switch d := v.(type) {
	case int:
		return int64(d), true
	case int64:
		return d, true
	case json.Number:
		if n, err := d.Int64(); err == nil {
			return n, true
		}
		f, err := d.Float64()
		if err != nil {
			return 0, false
		}
		return integral(f)
	case float64:
		return integral(d)
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(d), 10, 64)
		return n, err == nil
	}
	return 0, false
}

func integral(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}
