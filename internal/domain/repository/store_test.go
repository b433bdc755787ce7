package repository

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.etcd.io/bbolt"

	"hoursly/internal/common"
	"hoursly/internal/domain/model"
)

func TestMemoryStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store { return NewMemoryStore() })
}

func TestBoltStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store {
		db, err := bbolt.Open(filepath.Join(t.TempDir(), "test.db"), 0600, nil)
		if err != nil {
			t.Fatalf("open bolt: %v", err)
		}
		s, err := NewBoltStore(db)
		if err != nil {
			t.Fatalf("NewBoltStore: %v", err)
		}
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestPgStore(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	runStoreSuite(t, func(t *testing.T) Store {
		db, err := sql.Open("pgx", dsn)
		if err != nil {
			t.Fatalf("open postgres: %v", err)
		}
		s := NewPgStore(db)
		ctx := context.Background()
		if err := s.EnsureSchema(ctx); err != nil {
			t.Fatalf("EnsureSchema: %v", err)
		}
		_, err = db.ExecContext(ctx, `TRUNCATE saved_office_hours, office_hours, memberships,
			assignments, courses, users RESTART IDENTITY CASCADE`)
		if err != nil {
			t.Fatalf("truncate: %v", err)
		}
		t.Cleanup(func() { s.Close() })
		return s
	})
}

type fixture struct {
	alice, bob model.User
	course     model.Course
	oh         model.OfficeHour
}

// seed creates two users, one course where alice is TA and bob a student,
// and one office hour held by alice.
func seed(t *testing.T, s Store) fixture {
	t.Helper()
	var f fixture
	err := s.Update(context.Background(), func(tx Tx) error {
		ctx := context.Background()
		f.alice = model.User{Name: "Alice", NetID: "al1"}
		f.bob = model.User{Name: "Bob", NetID: "bb2"}
		if err := tx.CreateUser(ctx, &f.alice); err != nil {
			return err
		}
		if err := tx.CreateUser(ctx, &f.bob); err != nil {
			return err
		}
		f.course = model.Course{Code: "CS101", Name: "Intro", Slug: model.CourseSlug("CS101")}
		if err := tx.CreateCourse(ctx, &f.course); err != nil {
			return err
		}
		if err := tx.UpsertMembership(ctx, &model.Membership{UserID: f.alice.ID, CourseID: f.course.ID, Role: model.RoleTA}); err != nil {
			return err
		}
		if err := tx.UpsertMembership(ctx, &model.Membership{UserID: f.bob.ID, CourseID: f.course.ID, Role: model.RoleStudent}); err != nil {
			return err
		}
		f.oh = model.OfficeHour{Day: "Mon", StartTime: "2pm", EndTime: "3pm", Location: "Rm1", CourseID: f.course.ID, TAID: f.alice.ID}
		return tx.CreateOfficeHour(ctx, &f.oh)
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return f
}

func runStoreSuite(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("ids ascend and get round trips", func(t *testing.T) {
		s := newStore(t)
		f := seed(t, s)
		if f.bob.ID <= f.alice.ID {
			t.Errorf("expected ascending ids, got alice=%d bob=%d", f.alice.ID, f.bob.ID)
		}
		err := s.View(ctx, func(tx Tx) error {
			u, err := tx.GetUser(ctx, f.alice.ID)
			if err != nil {
				return err
			}
			if u.Name != "Alice" || u.NetID != "al1" {
				t.Errorf("unexpected user %+v", u)
			}
			c, err := tx.GetCourseBySlug(ctx, model.CourseSlug("cs101"))
			if err != nil {
				return err
			}
			if c.ID != f.course.ID {
				t.Errorf("slug lookup returned course %d, want %d", c.ID, f.course.ID)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("View: %v", err)
		}
	})

	t.Run("get unknown id is not found", func(t *testing.T) {
		s := newStore(t)
		err := s.View(ctx, func(tx Tx) error {
			_, err := tx.GetCourse(ctx, 999)
			return err
		})
		if !errors.Is(err, common.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("upsert membership keeps one row", func(t *testing.T) {
		s := newStore(t)
		f := seed(t, s)
		var first, second model.Membership
		err := s.Update(ctx, func(tx Tx) error {
			m, err := tx.GetMembership(ctx, f.bob.ID, f.course.ID)
			if err != nil {
				return err
			}
			first = *m
			second = model.Membership{UserID: f.bob.ID, CourseID: f.course.ID, Role: model.RoleInstructor}
			return tx.UpsertMembership(ctx, &second)
		})
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if second.ID != first.ID || second.Role != model.RoleInstructor {
			t.Errorf("expected role replaced in place, got %+v (was %+v)", second, first)
		}
		s.View(ctx, func(tx Tx) error {
			ms, _ := tx.ListMembershipsByCourse(ctx, f.course.ID)
			if len(ms) != 2 {
				t.Errorf("expected 2 memberships, got %d", len(ms))
			}
			return nil
		})

		var again model.Membership
		s.Update(ctx, func(tx Tx) error {
			again = model.Membership{UserID: f.bob.ID, CourseID: f.course.ID, Role: model.RoleInstructor}
			return tx.UpsertMembership(ctx, &again)
		})
		if !again.UpdatedAt.Equal(second.UpdatedAt) {
			t.Errorf("unchanged role must not touch updated_at: %v != %v", again.UpdatedAt, second.UpdatedAt)
		}
	})

	t.Run("saved office hour uniqueness", func(t *testing.T) {
		s := newStore(t)
		f := seed(t, s)
		save := func() error {
			return s.Update(ctx, func(tx Tx) error {
				return tx.CreateSavedOfficeHour(ctx, &model.SavedOfficeHour{UserID: f.bob.ID, OfficeHourID: f.oh.ID})
			})
		}
		if err := save(); err != nil {
			t.Fatalf("first save: %v", err)
		}
		if err := save(); !errors.Is(err, common.ErrAlreadyExists) {
			t.Errorf("expected ErrAlreadyExists, got %v", err)
		}
		s.View(ctx, func(tx Tx) error {
			saved, _ := tx.ListSavedOfficeHoursByUser(ctx, f.bob.ID)
			if len(saved) != 1 {
				t.Errorf("expected 1 saved row, got %d", len(saved))
			}
			return nil
		})

		err := s.Update(ctx, func(tx Tx) error {
			return tx.DeleteSavedOfficeHour(ctx, f.alice.ID, f.oh.ID)
		})
		if !errors.Is(err, common.ErrNotFound) {
			t.Errorf("expected ErrNotFound for never-saved pair, got %v", err)
		}
	})

	t.Run("failed update rolls back", func(t *testing.T) {
		s := newStore(t)
		boom := errors.New("boom")
		err := s.Update(ctx, func(tx Tx) error {
			if err := tx.CreateUser(ctx, &model.User{Name: "Ghost", NetID: "gh0"}); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("expected fn error, got %v", err)
		}
		err = s.View(ctx, func(tx Tx) error {
			_, err := tx.GetUser(ctx, 1)
			return err
		})
		if !errors.Is(err, common.ErrNotFound) {
			t.Errorf("expected rolled back user to be absent, got %v", err)
		}
	})

	t.Run("create with missing parent is not found", func(t *testing.T) {
		s := newStore(t)
		err := s.Update(ctx, func(tx Tx) error {
			return tx.CreateAssignment(ctx, &model.Assignment{Title: "HW1", DueDate: 1700000000, CourseID: 42})
		})
		if !errors.Is(err, common.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("delete course cascades", func(t *testing.T) {
		s := newStore(t)
		f := seed(t, s)
		var a model.Assignment
		err := s.Update(ctx, func(tx Tx) error {
			a = model.Assignment{Title: "HW1", DueDate: 1700000000, CourseID: f.course.ID}
			if err := tx.CreateAssignment(ctx, &a); err != nil {
				return err
			}
			if err := tx.CreateSavedOfficeHour(ctx, &model.SavedOfficeHour{UserID: f.bob.ID, OfficeHourID: f.oh.ID}); err != nil {
				return err
			}
			return tx.DeleteCourse(ctx, f.course.ID)
		})
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		s.View(ctx, func(tx Tx) error {
			if _, err := tx.GetAssignment(ctx, a.ID); !errors.Is(err, common.ErrNotFound) {
				t.Errorf("assignment survived: %v", err)
			}
			if _, err := tx.GetOfficeHour(ctx, f.oh.ID); !errors.Is(err, common.ErrNotFound) {
				t.Errorf("office hour survived: %v", err)
			}
			if ms, _ := tx.ListMembershipsByUser(ctx, f.bob.ID); len(ms) != 0 {
				t.Errorf("memberships survived: %+v", ms)
			}
			if saved, _ := tx.ListSavedOfficeHoursByUser(ctx, f.bob.ID); len(saved) != 0 {
				t.Errorf("saved rows survived: %+v", saved)
			}
			if _, err := tx.GetUser(ctx, f.bob.ID); err != nil {
				t.Errorf("user must survive course delete: %v", err)
			}
			return nil
		})
	})

	t.Run("delete user cascades", func(t *testing.T) {
		s := newStore(t)
		f := seed(t, s)
		err := s.Update(ctx, func(tx Tx) error {
			if err := tx.CreateSavedOfficeHour(ctx, &model.SavedOfficeHour{UserID: f.bob.ID, OfficeHourID: f.oh.ID}); err != nil {
				return err
			}
			return tx.DeleteUser(ctx, f.alice.ID)
		})
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		s.View(ctx, func(tx Tx) error {
			if _, err := tx.GetOfficeHour(ctx, f.oh.ID); !errors.Is(err, common.ErrNotFound) {
				t.Errorf("TA office hour survived: %v", err)
			}
			if saved, _ := tx.ListSavedOfficeHoursByUser(ctx, f.bob.ID); len(saved) != 0 {
				t.Errorf("saved rows on TA office hour survived: %+v", saved)
			}
			if ms, _ := tx.ListMembershipsByCourse(ctx, f.course.ID); len(ms) != 1 || ms[0].UserID != f.bob.ID {
				t.Errorf("expected only bob's membership, got %+v", ms)
			}
			if _, err := tx.GetCourse(ctx, f.course.ID); err != nil {
				t.Errorf("course must survive user delete: %v", err)
			}
			return nil
		})
	})

	t.Run("view rejects writes", func(t *testing.T) {
		s := newStore(t)
		err := s.View(ctx, func(tx Tx) error {
			return tx.CreateUser(ctx, &model.User{Name: "x", NetID: "y"})
		})
		if err == nil {
			t.Error("expected write inside View to fail")
		}
	})
}
