package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"hoursly/internal/common"
	"hoursly/internal/domain/repository"
)

// ViewCache caches rendered views by key. Invalidate drops every entry.
type ViewCache interface {
	Fetch(ctx context.Context, key string, load func(ctx context.Context) ([]byte, error)) ([]byte, error)
	Invalidate(ctx context.Context)
}

var (
	errUserNotFound       = common.NewError(common.ErrNotFound, "User not found!")
	errCourseNotFound     = common.NewError(common.ErrNotFound, "Course not found!")
	errAssignmentNotFound = common.NewError(common.ErrNotFound, "Assignment not found!")
	errOfficeHourNotFound = common.NewError(common.ErrNotFound, "Office hour not found!")
)

// base carries what every service needs: the store handle, the view cache
// and a logger.
type base struct {
	store  repository.Store
	cache  ViewCache
	logger *zap.Logger
}

// notFound replaces a bare store ErrNotFound with the tagged error the
// caller should see.
func notFound(err error, tagged error) error {
	if errors.Is(err, common.ErrNotFound) {
		var e *common.Error
		if errors.As(err, &e) {
			return err
		}
		return tagged
	}
	return err
}

// mutate runs fn in one write transaction and invalidates cached views
// once it commits.
func (b *base) mutate(ctx context.Context, op string, fn func(tx repository.Tx) error) error {
	if err := b.store.Update(ctx, fn); err != nil {
		return err
	}
	b.cache.Invalidate(ctx)
	b.logger.Debug("store mutated", zap.String("op", op))
	return nil
}

// readThrough serves a rendered view from the cache, rendering it inside a
// read transaction on a miss.
func readThrough[T any](ctx context.Context, b *base, key string, render func(tx repository.Tx) (*T, error)) (*T, error) {
	data, err := b.cache.Fetch(ctx, key, func(ctx context.Context) ([]byte, error) {
		var v *T
		err := b.store.View(ctx, func(tx repository.Tx) error {
			var err error
			v, err = render(tx)
			return err
		})
		if err != nil {
			return nil, err
		}
		return json.Marshal(v)
	})
	if err != nil {
		return nil, err
	}

	out := new(T)
	if err := json.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("decode cached view %s: %w", key, err)
	}
	return out, nil
}
