package repository

import (
	"cmp"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"go.etcd.io/bbolt"

	"hoursly/internal/common"
	"hoursly/internal/domain/model"
)

var (
	bucketUsers         = []byte("users")
	bucketCourses       = []byte("courses")
	bucketAssignments   = []byte("assignments")
	bucketMemberships   = []byte("memberships")
	bucketOfficeHours   = []byte("office_hours")
	bucketSaved         = []byte("saved_office_hours")
	bucketMembershipIdx = []byte("membership_idx") // user|course -> membership id
	bucketSavedIdx      = []byte("saved_idx")      // user|oh -> saved id
)

var boltBuckets = [][]byte{
	bucketUsers, bucketCourses, bucketAssignments, bucketMemberships,
	bucketOfficeHours, bucketSaved, bucketMembershipIdx, bucketSavedIdx,
}

var _ Store = (*BoltStore)(nil)

// BoltStore persists entities in a single bbolt file, one bucket per
// entity type with JSON values keyed by big-endian id.
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore creates any missing bucket and returns the store.
func NewBoltStore(db *bbolt.DB) (*BoltStore, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		for _, name := range boltBuckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("boltStore.init: %w", err)
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return fn(&boltTx{tx: tx})
	})
}

func (s *BoltStore) View(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(tx *bbolt.Tx) error {
		return fn(&boltTx{tx: tx})
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

type boltTx struct {
	tx *bbolt.Tx
}

func itob(id int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(id))
	return b
}

func btoi(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b))
}

func pairBytes(a, b int64) []byte {
	return append(itob(a), itob(b)...)
}

func putJSON(b *bbolt.Bucket, id int64, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.Put(itob(id), data)
}

func getJSON[T any](b *bbolt.Bucket, id int64) (*T, error) {
	raw := b.Get(itob(id))
	if raw == nil {
		return nil, common.ErrNotFound
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode %d: %w", id, err)
	}
	return &out, nil
}

// scanJSON decodes every value of b accepted by keep, in id order.
func scanJSON[T any](b *bbolt.Bucket, keep func(T) bool) ([]T, error) {
	out := []T{}
	err := b.ForEach(func(_, raw []byte) error {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		if keep(v) {
			out = append(out, v)
		}
		return nil
	})
	return out, err
}

func (t *boltTx) exists(bucket []byte, id int64) bool {
	return t.tx.Bucket(bucket).Get(itob(id)) != nil
}

func (t *boltTx) nextID(bucket []byte) (int64, error) {
	seq, err := t.tx.Bucket(bucket).NextSequence()
	if err != nil {
		return 0, err
	}
	return int64(seq), nil
}

// insert assigns the next id through setID and stores v under it.
func (t *boltTx) insert(op string, bucket []byte, setID func(int64), v any) error {
	id, err := t.nextID(bucket)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	setID(id)
	if err := putJSON(t.tx.Bucket(bucket), id, v); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Users

func (t *boltTx) CreateUser(_ context.Context, user *model.User) error {
	return t.insert("boltStore.CreateUser", bucketUsers, func(id int64) { user.ID = id }, user)
}

func (t *boltTx) GetUser(_ context.Context, id int64) (*model.User, error) {
	return getJSON[model.User](t.tx.Bucket(bucketUsers), id)
}

func (t *boltTx) DeleteUser(ctx context.Context, id int64) error {
	if !t.exists(bucketUsers, id) {
		return common.ErrNotFound
	}
	memberships, err := t.ListMembershipsByUser(ctx, id)
	if err != nil {
		return fmt.Errorf("boltStore.DeleteUser: %w", err)
	}
	for _, m := range memberships {
		if err := t.deleteMembership(m); err != nil {
			return fmt.Errorf("boltStore.DeleteUser: %w", err)
		}
	}
	saved, err := t.ListSavedOfficeHoursByUser(ctx, id)
	if err != nil {
		return fmt.Errorf("boltStore.DeleteUser: %w", err)
	}
	for _, s := range saved {
		if err := t.deleteSaved(s); err != nil {
			return fmt.Errorf("boltStore.DeleteUser: %w", err)
		}
	}
	hours, err := t.ListOfficeHoursByTA(ctx, id)
	if err != nil {
		return fmt.Errorf("boltStore.DeleteUser: %w", err)
	}
	for _, oh := range hours {
		if err := t.deleteOfficeHour(oh.ID); err != nil {
			return fmt.Errorf("boltStore.DeleteUser: %w", err)
		}
	}
	return t.tx.Bucket(bucketUsers).Delete(itob(id))
}

// Courses and assignments

func (t *boltTx) CreateCourse(_ context.Context, c *model.Course) error {
	return t.insert("boltStore.CreateCourse", bucketCourses, func(id int64) { c.ID = id }, c)
}

func (t *boltTx) GetCourse(_ context.Context, id int64) (*model.Course, error) {
	return getJSON[model.Course](t.tx.Bucket(bucketCourses), id)
}

func (t *boltTx) GetCourseBySlug(_ context.Context, slug string) (*model.Course, error) {
	matches, err := scanJSON(t.tx.Bucket(bucketCourses), func(c model.Course) bool { return c.Slug == slug })
	if err != nil {
		return nil, fmt.Errorf("boltStore.GetCourseBySlug: %w", err)
	}
	if len(matches) == 0 {
		return nil, common.ErrNotFound
	}
	return &matches[0], nil
}

func (t *boltTx) ListCourses(_ context.Context) ([]model.Course, error) {
	courses, err := scanJSON(t.tx.Bucket(bucketCourses), func(model.Course) bool { return true })
	if err != nil {
		return nil, fmt.Errorf("boltStore.ListCourses: %w", err)
	}
	return courses, nil
}

func (t *boltTx) DeleteCourse(ctx context.Context, id int64) error {
	if !t.exists(bucketCourses, id) {
		return common.ErrNotFound
	}
	assignments, err := t.ListAssignmentsByCourse(ctx, id)
	if err != nil {
		return fmt.Errorf("boltStore.DeleteCourse: %w", err)
	}
	for _, a := range assignments {
		if err := t.tx.Bucket(bucketAssignments).Delete(itob(a.ID)); err != nil {
			return fmt.Errorf("boltStore.DeleteCourse: %w", err)
		}
	}
	memberships, err := t.ListMembershipsByCourse(ctx, id)
	if err != nil {
		return fmt.Errorf("boltStore.DeleteCourse: %w", err)
	}
	for _, m := range memberships {
		if err := t.deleteMembership(m); err != nil {
			return fmt.Errorf("boltStore.DeleteCourse: %w", err)
		}
	}
	hours, err := t.ListOfficeHoursByCourse(ctx, id)
	if err != nil {
		return fmt.Errorf("boltStore.DeleteCourse: %w", err)
	}
	for _, oh := range hours {
		if err := t.deleteOfficeHour(oh.ID); err != nil {
			return fmt.Errorf("boltStore.DeleteCourse: %w", err)
		}
	}
	return t.tx.Bucket(bucketCourses).Delete(itob(id))
}

func (t *boltTx) CreateAssignment(_ context.Context, a *model.Assignment) error {
	if !t.exists(bucketCourses, a.CourseID) {
		return common.ErrNotFound
	}
	return t.insert("boltStore.CreateAssignment", bucketAssignments, func(id int64) { a.ID = id }, a)
}

func (t *boltTx) GetAssignment(_ context.Context, id int64) (*model.Assignment, error) {
	return getJSON[model.Assignment](t.tx.Bucket(bucketAssignments), id)
}

func (t *boltTx) ListAssignmentsByCourse(_ context.Context, courseID int64) ([]model.Assignment, error) {
	out, err := scanJSON(t.tx.Bucket(bucketAssignments), func(a model.Assignment) bool { return a.CourseID == courseID })
	if err != nil {
		return nil, fmt.Errorf("boltStore.ListAssignmentsByCourse: %w", err)
	}
	return out, nil
}

// Memberships

func (t *boltTx) UpsertMembership(_ context.Context, m *model.Membership) error {
	if !t.exists(bucketUsers, m.UserID) || !t.exists(bucketCourses, m.CourseID) {
		return common.ErrNotFound
	}
	idx := t.tx.Bucket(bucketMembershipIdx)
	key := pairBytes(m.UserID, m.CourseID)
	if raw := idx.Get(key); raw != nil {
		existing, err := getJSON[model.Membership](t.tx.Bucket(bucketMemberships), btoi(raw))
		if err != nil {
			return fmt.Errorf("boltStore.UpsertMembership: %w", err)
		}
		if existing.Role != m.Role {
			existing.Role = m.Role
			existing.UpdatedAt = time.Now().UTC()
			if err := putJSON(t.tx.Bucket(bucketMemberships), existing.ID, existing); err != nil {
				return fmt.Errorf("boltStore.UpsertMembership: %w", err)
			}
		}
		*m = *existing
		return nil
	}

	ts := time.Now().UTC()
	m.CreatedAt, m.UpdatedAt = ts, ts
	if err := t.insert("boltStore.UpsertMembership", bucketMemberships, func(id int64) { m.ID = id }, m); err != nil {
		return err
	}
	return idx.Put(key, itob(m.ID))
}

func (t *boltTx) GetMembership(_ context.Context, userID, courseID int64) (*model.Membership, error) {
	raw := t.tx.Bucket(bucketMembershipIdx).Get(pairBytes(userID, courseID))
	if raw == nil {
		return nil, common.ErrNotFound
	}
	return getJSON[model.Membership](t.tx.Bucket(bucketMemberships), btoi(raw))
}

func (t *boltTx) ListMembershipsByCourse(_ context.Context, courseID int64) ([]model.Membership, error) {
	out, err := scanJSON(t.tx.Bucket(bucketMemberships), func(m model.Membership) bool { return m.CourseID == courseID })
	if err != nil {
		return nil, fmt.Errorf("boltStore.ListMembershipsByCourse: %w", err)
	}
	slices.SortFunc(out, func(a, b model.Membership) int { return cmp.Compare(a.UserID, b.UserID) })
	return out, nil
}

func (t *boltTx) ListMembershipsByUser(_ context.Context, userID int64) ([]model.Membership, error) {
	out, err := scanJSON(t.tx.Bucket(bucketMemberships), func(m model.Membership) bool { return m.UserID == userID })
	if err != nil {
		return nil, fmt.Errorf("boltStore.ListMembershipsByUser: %w", err)
	}
	slices.SortFunc(out, func(a, b model.Membership) int { return cmp.Compare(a.CourseID, b.CourseID) })
	return out, nil
}

func (t *boltTx) deleteMembership(m model.Membership) error {
	if err := t.tx.Bucket(bucketMembershipIdx).Delete(pairBytes(m.UserID, m.CourseID)); err != nil {
		return err
	}
	return t.tx.Bucket(bucketMemberships).Delete(itob(m.ID))
}

// Office hours

func (t *boltTx) CreateOfficeHour(_ context.Context, oh *model.OfficeHour) error {
	if !t.exists(bucketCourses, oh.CourseID) || !t.exists(bucketUsers, oh.TAID) {
		return common.ErrNotFound
	}
	return t.insert("boltStore.CreateOfficeHour", bucketOfficeHours, func(id int64) { oh.ID = id }, oh)
}

func (t *boltTx) GetOfficeHour(_ context.Context, id int64) (*model.OfficeHour, error) {
	return getJSON[model.OfficeHour](t.tx.Bucket(bucketOfficeHours), id)
}

func (t *boltTx) ListOfficeHoursByCourse(_ context.Context, courseID int64) ([]model.OfficeHour, error) {
	out, err := scanJSON(t.tx.Bucket(bucketOfficeHours), func(oh model.OfficeHour) bool { return oh.CourseID == courseID })
	if err != nil {
		return nil, fmt.Errorf("boltStore.ListOfficeHoursByCourse: %w", err)
	}
	return out, nil
}

func (t *boltTx) ListOfficeHoursByTA(_ context.Context, taID int64) ([]model.OfficeHour, error) {
	out, err := scanJSON(t.tx.Bucket(bucketOfficeHours), func(oh model.OfficeHour) bool { return oh.TAID == taID })
	if err != nil {
		return nil, fmt.Errorf("boltStore.ListOfficeHoursByTA: %w", err)
	}
	return out, nil
}

func (t *boltTx) deleteOfficeHour(id int64) error {
	saved, err := scanJSON(t.tx.Bucket(bucketSaved), func(s model.SavedOfficeHour) bool { return s.OfficeHourID == id })
	if err != nil {
		return err
	}
	for _, s := range saved {
		if err := t.deleteSaved(s); err != nil {
			return err
		}
	}
	return t.tx.Bucket(bucketOfficeHours).Delete(itob(id))
}

func (t *boltTx) CreateSavedOfficeHour(_ context.Context, s *model.SavedOfficeHour) error {
	if !t.exists(bucketUsers, s.UserID) || !t.exists(bucketOfficeHours, s.OfficeHourID) {
		return common.ErrNotFound
	}
	idx := t.tx.Bucket(bucketSavedIdx)
	key := pairBytes(s.UserID, s.OfficeHourID)
	if idx.Get(key) != nil {
		return common.ErrAlreadyExists
	}
	s.CreatedAt = time.Now().UTC()
	if err := t.insert("boltStore.CreateSavedOfficeHour", bucketSaved, func(id int64) { s.ID = id }, s); err != nil {
		return err
	}
	return idx.Put(key, itob(s.ID))
}

func (t *boltTx) DeleteSavedOfficeHour(_ context.Context, userID, officeHourID int64) error {
	raw := t.tx.Bucket(bucketSavedIdx).Get(pairBytes(userID, officeHourID))
	if raw == nil {
		return common.ErrNotFound
	}
	return t.deleteSaved(model.SavedOfficeHour{ID: btoi(raw), UserID: userID, OfficeHourID: officeHourID})
}

func (t *boltTx) ListSavedOfficeHoursByUser(_ context.Context, userID int64) ([]model.SavedOfficeHour, error) {
	out, err := scanJSON(t.tx.Bucket(bucketSaved), func(s model.SavedOfficeHour) bool { return s.UserID == userID })
	if err != nil {
		return nil, fmt.Errorf("boltStore.ListSavedOfficeHoursByUser: %w", err)
	}
	slices.SortFunc(out, func(a, b model.SavedOfficeHour) int { return cmp.Compare(a.OfficeHourID, b.OfficeHourID) })
	return out, nil
}

func (t *boltTx) deleteSaved(s model.SavedOfficeHour) error {
	if err := t.tx.Bucket(bucketSavedIdx).Delete(pairBytes(s.UserID, s.OfficeHourID)); err != nil {
		return err
	}
	return t.tx.Bucket(bucketSaved).Delete(itob(s.ID))
}
