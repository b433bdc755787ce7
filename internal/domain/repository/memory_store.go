package repository

import (
	"cmp"
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"time"

	"hoursly/internal/common"
	"hoursly/internal/domain/model"
)

var errReadOnlyTx = errors.New("write attempted in a read-only transaction")

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps every entity in process memory. Update runs against a
// copy of the state which replaces the live one only when fn succeeds.
type MemoryStore struct {
	mu    sync.RWMutex
	state *memState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemState()}
}

type pairKey [2]int64

type memState struct {
	seq         map[string]int64
	users       map[int64]model.User
	courses     map[int64]model.Course
	assignments map[int64]model.Assignment
	memberships map[int64]model.Membership
	officeHours map[int64]model.OfficeHour
	saved       map[int64]model.SavedOfficeHour

	membershipIdx map[pairKey]int64 // (user, course) -> membership id
	savedIdx      map[pairKey]int64 // (user, office hour) -> saved id
}

func newMemState() *memState {
	return &memState{
		seq:           map[string]int64{},
		users:         map[int64]model.User{},
		courses:       map[int64]model.Course{},
		assignments:   map[int64]model.Assignment{},
		memberships:   map[int64]model.Membership{},
		officeHours:   map[int64]model.OfficeHour{},
		saved:         map[int64]model.SavedOfficeHour{},
		membershipIdx: map[pairKey]int64{},
		savedIdx:      map[pairKey]int64{},
	}
}

func (s *memState) clone() *memState {
	return &memState{
		seq:           maps.Clone(s.seq),
		users:         maps.Clone(s.users),
		courses:       maps.Clone(s.courses),
		assignments:   maps.Clone(s.assignments),
		memberships:   maps.Clone(s.memberships),
		officeHours:   maps.Clone(s.officeHours),
		saved:         maps.Clone(s.saved),
		membershipIdx: maps.Clone(s.membershipIdx),
		savedIdx:      maps.Clone(s.savedIdx),
	}
}

func (s *memState) next(kind string) int64 {
	s.seq[kind]++
	return s.seq[kind]
}

func (s *MemoryStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.state.clone()
	if err := fn(&memTx{s: work}); err != nil {
		return err
	}
	s.state = work
	return nil
}

func (s *MemoryStore) View(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(&memTx{s: s.state, readOnly: true})
}

func (s *MemoryStore) Close() error { return nil }

type memTx struct {
	s        *memState
	readOnly bool
}

func (t *memTx) writable() error {
	if t.readOnly {
		return errReadOnlyTx
	}
	return nil
}

// collect returns the values of m accepted by keep, ordered by sortKey.
func collect[T any](m map[int64]T, keep func(T) bool, sortKey func(T) int64) []T {
	out := []T{}
	for _, v := range m {
		if keep(v) {
			out = append(out, v)
		}
	}
	slices.SortFunc(out, func(a, b T) int { return cmp.Compare(sortKey(a), sortKey(b)) })
	return out
}

func now() time.Time { return time.Now().UTC() }

// Users

func (t *memTx) CreateUser(_ context.Context, user *model.User) error {
	if err := t.writable(); err != nil {
		return err
	}
	user.ID = t.s.next("users")
	t.s.users[user.ID] = *user
	return nil
}

func (t *memTx) GetUser(_ context.Context, id int64) (*model.User, error) {
	u, ok := t.s.users[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &u, nil
}

func (t *memTx) DeleteUser(_ context.Context, id int64) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.s.users[id]; !ok {
		return common.ErrNotFound
	}
	for mid, m := range t.s.memberships {
		if m.UserID == id {
			t.deleteMembership(mid)
		}
	}
	for sid, s := range t.s.saved {
		if s.UserID == id {
			t.deleteSaved(sid)
		}
	}
	for ohID, oh := range t.s.officeHours {
		if oh.TAID == id {
			t.deleteOfficeHour(ohID)
		}
	}
	delete(t.s.users, id)
	return nil
}

// Courses and assignments

func (t *memTx) CreateCourse(_ context.Context, c *model.Course) error {
	if err := t.writable(); err != nil {
		return err
	}
	c.ID = t.s.next("courses")
	t.s.courses[c.ID] = *c
	return nil
}

func (t *memTx) GetCourse(_ context.Context, id int64) (*model.Course, error) {
	c, ok := t.s.courses[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &c, nil
}

func (t *memTx) GetCourseBySlug(_ context.Context, slug string) (*model.Course, error) {
	matches := collect(t.s.courses,
		func(c model.Course) bool { return c.Slug == slug },
		func(c model.Course) int64 { return c.ID })
	if len(matches) == 0 {
		return nil, common.ErrNotFound
	}
	return &matches[0], nil
}

func (t *memTx) ListCourses(_ context.Context) ([]model.Course, error) {
	return collect(t.s.courses,
		func(model.Course) bool { return true },
		func(c model.Course) int64 { return c.ID }), nil
}

func (t *memTx) DeleteCourse(_ context.Context, id int64) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.s.courses[id]; !ok {
		return common.ErrNotFound
	}
	for aid, a := range t.s.assignments {
		if a.CourseID == id {
			delete(t.s.assignments, aid)
		}
	}
	for mid, m := range t.s.memberships {
		if m.CourseID == id {
			t.deleteMembership(mid)
		}
	}
	for ohID, oh := range t.s.officeHours {
		if oh.CourseID == id {
			t.deleteOfficeHour(ohID)
		}
	}
	delete(t.s.courses, id)
	return nil
}

func (t *memTx) CreateAssignment(_ context.Context, a *model.Assignment) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.s.courses[a.CourseID]; !ok {
		return common.ErrNotFound
	}
	a.ID = t.s.next("assignments")
	t.s.assignments[a.ID] = *a
	return nil
}

func (t *memTx) GetAssignment(_ context.Context, id int64) (*model.Assignment, error) {
	a, ok := t.s.assignments[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &a, nil
}

func (t *memTx) ListAssignmentsByCourse(_ context.Context, courseID int64) ([]model.Assignment, error) {
	return collect(t.s.assignments,
		func(a model.Assignment) bool { return a.CourseID == courseID },
		func(a model.Assignment) int64 { return a.ID }), nil
}

// Memberships

func (t *memTx) UpsertMembership(_ context.Context, m *model.Membership) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.s.users[m.UserID]; !ok {
		return common.ErrNotFound
	}
	if _, ok := t.s.courses[m.CourseID]; !ok {
		return common.ErrNotFound
	}
	key := pairKey{m.UserID, m.CourseID}
	if id, ok := t.s.membershipIdx[key]; ok {
		existing := t.s.memberships[id]
		if existing.Role != m.Role {
			existing.Role = m.Role
			existing.UpdatedAt = now()
			t.s.memberships[id] = existing
		}
		*m = existing
		return nil
	}
	ts := now()
	m.ID = t.s.next("memberships")
	m.CreatedAt, m.UpdatedAt = ts, ts
	t.s.memberships[m.ID] = *m
	t.s.membershipIdx[key] = m.ID
	return nil
}

func (t *memTx) GetMembership(_ context.Context, userID, courseID int64) (*model.Membership, error) {
	id, ok := t.s.membershipIdx[pairKey{userID, courseID}]
	if !ok {
		return nil, common.ErrNotFound
	}
	m := t.s.memberships[id]
	return &m, nil
}

func (t *memTx) ListMembershipsByCourse(_ context.Context, courseID int64) ([]model.Membership, error) {
	return collect(t.s.memberships,
		func(m model.Membership) bool { return m.CourseID == courseID },
		func(m model.Membership) int64 { return m.UserID }), nil
}

func (t *memTx) ListMembershipsByUser(_ context.Context, userID int64) ([]model.Membership, error) {
	return collect(t.s.memberships,
		func(m model.Membership) bool { return m.UserID == userID },
		func(m model.Membership) int64 { return m.CourseID }), nil
}

func (t *memTx) deleteMembership(id int64) {
	m := t.s.memberships[id]
	delete(t.s.membershipIdx, pairKey{m.UserID, m.CourseID})
	delete(t.s.memberships, id)
}

// Office hours

func (t *memTx) CreateOfficeHour(_ context.Context, oh *model.OfficeHour) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.s.courses[oh.CourseID]; !ok {
		return common.ErrNotFound
	}
	if _, ok := t.s.users[oh.TAID]; !ok {
		return common.ErrNotFound
	}
	oh.ID = t.s.next("office_hours")
	t.s.officeHours[oh.ID] = *oh
	return nil
}

func (t *memTx) GetOfficeHour(_ context.Context, id int64) (*model.OfficeHour, error) {
	oh, ok := t.s.officeHours[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &oh, nil
}

func (t *memTx) ListOfficeHoursByCourse(_ context.Context, courseID int64) ([]model.OfficeHour, error) {
	return collect(t.s.officeHours,
		func(oh model.OfficeHour) bool { return oh.CourseID == courseID },
		func(oh model.OfficeHour) int64 { return oh.ID }), nil
}

func (t *memTx) ListOfficeHoursByTA(_ context.Context, taID int64) ([]model.OfficeHour, error) {
	return collect(t.s.officeHours,
		func(oh model.OfficeHour) bool { return oh.TAID == taID },
		func(oh model.OfficeHour) int64 { return oh.ID }), nil
}

func (t *memTx) deleteOfficeHour(id int64) {
	for sid, s := range t.s.saved {
		if s.OfficeHourID == id {
			t.deleteSaved(sid)
		}
	}
	delete(t.s.officeHours, id)
}

func (t *memTx) CreateSavedOfficeHour(_ context.Context, s *model.SavedOfficeHour) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.s.users[s.UserID]; !ok {
		return common.ErrNotFound
	}
	if _, ok := t.s.officeHours[s.OfficeHourID]; !ok {
		return common.ErrNotFound
	}
	key := pairKey{s.UserID, s.OfficeHourID}
	if _, ok := t.s.savedIdx[key]; ok {
		return common.ErrAlreadyExists
	}
	s.ID = t.s.next("saved_office_hours")
	s.CreatedAt = now()
	t.s.saved[s.ID] = *s
	t.s.savedIdx[key] = s.ID
	return nil
}

func (t *memTx) DeleteSavedOfficeHour(_ context.Context, userID, officeHourID int64) error {
	if err := t.writable(); err != nil {
		return err
	}
	id, ok := t.s.savedIdx[pairKey{userID, officeHourID}]
	if !ok {
		return common.ErrNotFound
	}
	t.deleteSaved(id)
	return nil
}

func (t *memTx) ListSavedOfficeHoursByUser(_ context.Context, userID int64) ([]model.SavedOfficeHour, error) {
	return collect(t.s.saved,
		func(s model.SavedOfficeHour) bool { return s.UserID == userID },
		func(s model.SavedOfficeHour) int64 { return s.OfficeHourID }), nil
}

func (t *memTx) deleteSaved(id int64) {
	s := t.s.saved[id]
	delete(t.s.savedIdx, pairKey{s.UserID, s.OfficeHourID})
	delete(t.s.saved, id)
}
