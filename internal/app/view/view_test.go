package view

import (
	"context"
	"encoding/json"
	"testing"

	"hoursly/internal/domain/model"
	"hoursly/internal/domain/repository"
)

type world struct {
	store      *repository.MemoryStore
	alice, bob model.User
	course     model.Course
	oh         model.OfficeHour
}

func newWorld(t *testing.T) *world {
	t.Helper()
	ctx := context.Background()
	w := &world{store: repository.NewMemoryStore()}
	err := w.store.Update(ctx, func(tx repository.Tx) error {
		w.alice = model.User{Name: "Alice", NetID: "al1"}
		w.bob = model.User{Name: "Bob", NetID: "bb2"}
		tx.CreateUser(ctx, &w.alice)
		tx.CreateUser(ctx, &w.bob)
		w.course = model.Course{Code: "CS101", Name: "Intro", Slug: model.CourseSlug("CS101")}
		tx.CreateCourse(ctx, &w.course)
		tx.UpsertMembership(ctx, &model.Membership{UserID: w.alice.ID, CourseID: w.course.ID, Role: model.RoleTA})
		tx.UpsertMembership(ctx, &model.Membership{UserID: w.bob.ID, CourseID: w.course.ID, Role: model.RoleStudent})
		tx.CreateAssignment(ctx, &model.Assignment{Title: "HW1", DueDate: 1700000000, CourseID: w.course.ID})
		w.oh = model.OfficeHour{Day: "Mon", StartTime: "2pm", EndTime: "3pm", Location: "Rm1", CourseID: w.course.ID, TAID: w.alice.ID}
		if err := tx.CreateOfficeHour(ctx, &w.oh); err != nil {
			return err
		}
		return tx.CreateSavedOfficeHour(ctx, &model.SavedOfficeHour{UserID: w.bob.ID, OfficeHourID: w.oh.ID})
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return w
}

func toMap(t *testing.T, v any) map[string]any {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return m
}

func TestTruncatedViewsKeepNullRelationships(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	w.store.View(ctx, func(tx repository.Tx) error {
		cv, _ := Course(ctx, tx, &w.course, Truncated)
		m := toMap(t, cv)
		for _, field := range []string{"assignments", "students", "instructors", "tas", "office_hours"} {
			v, ok := m[field]
			if !ok || v != nil {
				t.Errorf("truncated course field %q = %v (present=%v), want null", field, v, ok)
			}
		}
		uv, _ := User(ctx, tx, &w.alice, Truncated)
		m = toMap(t, uv)
		for _, field := range []string{"courses", "saved_office_hours"} {
			if v, ok := m[field]; !ok || v != nil {
				t.Errorf("truncated user field %q = %v, want null", field, v)
			}
		}
		return nil
	})
}

func TestCourseFull(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	w.store.View(ctx, func(tx repository.Tx) error {
		cv, err := Course(ctx, tx, &w.course, Full)
		if err != nil {
			t.Fatalf("Course: %v", err)
		}
		if len(cv.Students) != 1 || cv.Students[0].NetID != "bb2" {
			t.Errorf("unexpected students %+v", cv.Students)
		}
		if len(cv.TAs) != 1 || cv.TAs[0].NetID != "al1" {
			t.Errorf("unexpected tas %+v", cv.TAs)
		}
		if cv.Instructors == nil || len(cv.Instructors) != 0 {
			t.Errorf("expected empty non-nil instructors, got %#v", cv.Instructors)
		}
		if len(cv.Assignments) != 1 || cv.Assignments[0].Course != nil {
			t.Errorf("expected one truncated assignment, got %+v", cv.Assignments)
		}
		if len(cv.OfficeHours) != 1 {
			t.Fatalf("expected one office hour, got %d", len(cv.OfficeHours))
		}
		oh := cv.OfficeHours[0]
		if oh.TA == nil || oh.TA.NetID != "al1" || oh.TA.Courses != nil {
			t.Errorf("expected truncated ta al1, got %+v", oh.TA)
		}
		if oh.Course == nil || oh.Course.OfficeHours != nil {
			t.Errorf("expected truncated course on office hour, got %+v", oh.Course)
		}
		return nil
	})
}

func TestUserFullListsSavedOfficeHours(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	w.store.View(ctx, func(tx repository.Tx) error {
		uv, err := User(ctx, tx, &w.bob, Full)
		if err != nil {
			t.Fatalf("User: %v", err)
		}
		if len(uv.Courses) != 1 || uv.Courses[0].Code != "CS101" {
			t.Errorf("unexpected courses %+v", uv.Courses)
		}
		if len(uv.SavedOfficeHours) != 1 || uv.SavedOfficeHours[0].TA.NetID != "al1" {
			t.Errorf("unexpected saved office hours %+v", uv.SavedOfficeHours)
		}
		return nil
	})
}

func TestCourseStudentRoundTrip(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	w.store.View(ctx, func(tx repository.Tx) error {
		cv, _ := Course(ctx, tx, &w.course, Full)
		student := cv.Students[0]

		u, err := tx.GetUser(ctx, student.ID)
		if err != nil {
			t.Fatalf("GetUser: %v", err)
		}
		uv, _ := User(ctx, tx, u, Full)

		var found *CourseView
		for i := range uv.Courses {
			if uv.Courses[i].ID == cv.ID {
				found = &uv.Courses[i]
			}
		}
		if found == nil {
			t.Fatalf("course %d missing from student view", cv.ID)
		}
		if found.Code != cv.Code || found.Name != cv.Name {
			t.Errorf("truncated course %+v does not match %+v", found, cv)
		}
		m := toMap(t, found)
		for _, field := range []string{"assignments", "students", "instructors", "tas", "office_hours"} {
			if m[field] != nil {
				t.Errorf("field %q should be null in truncated course", field)
			}
		}
		return nil
	})
}

func TestAssignmentFull(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	w.store.View(ctx, func(tx repository.Tx) error {
		a, err := tx.GetAssignment(ctx, 1)
		if err != nil {
			t.Fatalf("GetAssignment: %v", err)
		}
		av, _ := Assignment(ctx, tx, a, Full)
		if av.Course == nil || av.Course.ID != w.course.ID || av.Course.Students != nil {
			t.Errorf("expected truncated owning course, got %+v", av.Course)
		}
		return nil
	})
}
