package repository

import (
	"context"
)

// Store is the handle to the backing store. It is created at process start
// and closed at process stop; all access goes through a transaction.
type Store interface {
	// Update runs fn in a read-write transaction. The transaction commits
	// only when fn returns nil; otherwise none of its writes are applied.
	Update(ctx context.Context, fn func(tx Tx) error) error
	// View runs fn against a consistent read-only snapshot.
	View(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}

// Tx is the set of operations available inside a transaction.
type Tx interface {
	UserRepository
	CourseRepository
	AssignmentRepository
	MembershipRepository
	OfficeHourRepository
}
