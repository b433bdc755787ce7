// Package view renders entities into the nested JSON shapes served to
// clients. A full view expands one level of relationships into truncated
// views; a truncated view keeps its relationship fields but leaves them
// null. Office hours listed inside a full user or course are rendered
// full, so no view nests deeper than two levels.
package view

import (
	"context"

	"hoursly/internal/domain/model"
)

type Depth int

const (
	Truncated Depth = iota
	Full
)

// Reader is the part of a store transaction the renderers need.
type Reader interface {
	GetUser(ctx context.Context, id int64) (*model.User, error)
	GetCourse(ctx context.Context, id int64) (*model.Course, error)
	GetOfficeHour(ctx context.Context, id int64) (*model.OfficeHour, error)
	ListAssignmentsByCourse(ctx context.Context, courseID int64) ([]model.Assignment, error)
	ListMembershipsByCourse(ctx context.Context, courseID int64) ([]model.Membership, error)
	ListMembershipsByUser(ctx context.Context, userID int64) ([]model.Membership, error)
	ListOfficeHoursByCourse(ctx context.Context, courseID int64) ([]model.OfficeHour, error)
	ListSavedOfficeHoursByUser(ctx context.Context, userID int64) ([]model.SavedOfficeHour, error)
}

type UserView struct {
	ID               int64            `json:"id"`
	Name             string           `json:"name"`
	NetID            string           `json:"netid"`
	Courses          []CourseView     `json:"courses"`
	SavedOfficeHours []OfficeHourView `json:"saved_office_hours"`
}

type CourseView struct {
	ID          int64            `json:"id"`
	Code        string           `json:"code"`
	Name        string           `json:"name"`
	Assignments []AssignmentView `json:"assignments"`
	Students    []UserView       `json:"students"`
	Instructors []UserView       `json:"instructors"`
	TAs         []UserView       `json:"tas"`
	OfficeHours []OfficeHourView `json:"office_hours"`
}

type OfficeHourView struct {
	ID        int64       `json:"id"`
	Day       string      `json:"day"`
	StartTime string      `json:"start_time"`
	EndTime   string      `json:"end_time"`
	Location  string      `json:"location"`
	Course    *CourseView `json:"course"`
	TA        *UserView   `json:"ta"`
}

type AssignmentView struct {
	ID      int64       `json:"id"`
	Title   string      `json:"title"`
	DueDate int64       `json:"due_date"`
	Course  *CourseView `json:"course"`
}

func User(ctx context.Context, r Reader, u *model.User, depth Depth) (*UserView, error) {
	v := &UserView{ID: u.ID, Name: u.Name, NetID: u.NetID}
	if depth == Truncated {
		return v, nil
	}

	memberships, err := r.ListMembershipsByUser(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	v.Courses = make([]CourseView, 0, len(memberships))
	for _, m := range memberships {
		c, err := r.GetCourse(ctx, m.CourseID)
		if err != nil {
			return nil, err
		}
		cv, _ := Course(ctx, r, c, Truncated)
		v.Courses = append(v.Courses, *cv)
	}

	saved, err := r.ListSavedOfficeHoursByUser(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	v.SavedOfficeHours = make([]OfficeHourView, 0, len(saved))
	for _, s := range saved {
		oh, err := r.GetOfficeHour(ctx, s.OfficeHourID)
		if err != nil {
			return nil, err
		}
		ohv, err := OfficeHour(ctx, r, oh, Full)
		if err != nil {
			return nil, err
		}
		v.SavedOfficeHours = append(v.SavedOfficeHours, *ohv)
	}
	return v, nil
}

func Course(ctx context.Context, r Reader, c *model.Course, depth Depth) (*CourseView, error) {
	v := &CourseView{ID: c.ID, Code: c.Code, Name: c.Name}
	if depth == Truncated {
		return v, nil
	}

	assignments, err := r.ListAssignmentsByCourse(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	v.Assignments = make([]AssignmentView, 0, len(assignments))
	for i := range assignments {
		av, _ := Assignment(ctx, r, &assignments[i], Truncated)
		v.Assignments = append(v.Assignments, *av)
	}

	memberships, err := r.ListMembershipsByCourse(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	v.Students, v.Instructors, v.TAs = []UserView{}, []UserView{}, []UserView{}
	for _, m := range memberships {
		u, err := r.GetUser(ctx, m.UserID)
		if err != nil {
			return nil, err
		}
		uv, _ := User(ctx, r, u, Truncated)
		switch m.Role {
		case model.RoleStudent:
			v.Students = append(v.Students, *uv)
		case model.RoleInstructor:
			v.Instructors = append(v.Instructors, *uv)
		case model.RoleTA:
			v.TAs = append(v.TAs, *uv)
		}
	}

	hours, err := r.ListOfficeHoursByCourse(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	v.OfficeHours = make([]OfficeHourView, 0, len(hours))
	for i := range hours {
		ohv, err := OfficeHour(ctx, r, &hours[i], Full)
		if err != nil {
			return nil, err
		}
		v.OfficeHours = append(v.OfficeHours, *ohv)
	}
	return v, nil
}

func OfficeHour(ctx context.Context, r Reader, oh *model.OfficeHour, depth Depth) (*OfficeHourView, error) {
	v := &OfficeHourView{
		ID:        oh.ID,
		Day:       oh.Day,
		StartTime: oh.StartTime,
		EndTime:   oh.EndTime,
		Location:  oh.Location,
	}
	if depth == Truncated {
		return v, nil
	}

	c, err := r.GetCourse(ctx, oh.CourseID)
	if err != nil {
		return nil, err
	}
	v.Course, _ = Course(ctx, r, c, Truncated)

	ta, err := r.GetUser(ctx, oh.TAID)
	if err != nil {
		return nil, err
	}
	v.TA, _ = User(ctx, r, ta, Truncated)
	return v, nil
}

func Assignment(ctx context.Context, r Reader, a *model.Assignment, depth Depth) (*AssignmentView, error) {
	v := &AssignmentView{ID: a.ID, Title: a.Title, DueDate: a.DueDate}
	if depth == Truncated {
		return v, nil
	}

	c, err := r.GetCourse(ctx, a.CourseID)
	if err != nil {
		return nil, err
	}
	v.Course, _ = Course(ctx, r, c, Truncated)
	return v, nil
}
