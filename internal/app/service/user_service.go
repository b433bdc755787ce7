package service

import (
	"context"
	"errors"
	"strconv"

	"go.uber.org/zap"

	"hoursly/internal/app/view"
	"hoursly/internal/common"
	"hoursly/internal/domain/model"
	"hoursly/internal/domain/repository"
)

type UserService struct {
	base
}

func NewUserService(store repository.Store, cache ViewCache, logger *zap.Logger) *UserService {
	return &UserService{base{store: store, cache: cache, logger: logger}}
}

type CreateUserRequest struct {
	Name  string `json:"name"`
	NetID string `json:"netid"`
}

// SaveOfficeHourRequest is the body of both save and unsave.
type SaveOfficeHourRequest struct {
	OfficeHourID *int64 `json:"oh_id"`
}

func (s *UserService) CreateUser(ctx context.Context, req CreateUserRequest) (*view.UserView, error) {
	if req.Name == "" || req.NetID == "" {
		return nil, common.NewError(common.ErrInvalidInput, "Missing one or more required fields (name, netid)!")
	}

	var out *view.UserView
	err := s.mutate(ctx, "CreateUser", func(tx repository.Tx) error {
		user := &model.User{Name: req.Name, NetID: req.NetID}
		if err := tx.CreateUser(ctx, user); err != nil {
			return err
		}
		var err error
		out, err = view.User(ctx, tx, user, view.Full)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *UserService) GetUser(ctx context.Context, id int64) (*view.UserView, error) {
	return readThrough(ctx, &s.base, "user:"+strconv.FormatInt(id, 10), func(tx repository.Tx) (*view.UserView, error) {
		user, err := tx.GetUser(ctx, id)
		if err != nil {
			return nil, notFound(err, errUserNotFound)
		}
		return view.User(ctx, tx, user, view.Full)
	})
}

// DeleteUser removes the user and returns its view as it was before the delete.
func (s *UserService) DeleteUser(ctx context.Context, id int64) (*view.UserView, error) {
	var out *view.UserView
	err := s.mutate(ctx, "DeleteUser", func(tx repository.Tx) error {
		user, err := tx.GetUser(ctx, id)
		if err != nil {
			return notFound(err, errUserNotFound)
		}
		if out, err = view.User(ctx, tx, user, view.Full); err != nil {
			return err
		}
		return tx.DeleteUser(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *UserService) SaveOfficeHour(ctx context.Context, userID int64, req SaveOfficeHourRequest) (*view.UserView, error) {
	return s.changeSaved(ctx, "SaveOfficeHour", userID, req, func(tx repository.Tx, ohID int64) error {
		err := tx.CreateSavedOfficeHour(ctx, &model.SavedOfficeHour{UserID: userID, OfficeHourID: ohID})
		if errors.Is(err, common.ErrAlreadyExists) {
			return common.NewError(common.ErrAlreadyExists, "Office hour already saved!")
		}
		return err
	})
}

func (s *UserService) UnsaveOfficeHour(ctx context.Context, userID int64, req SaveOfficeHourRequest) (*view.UserView, error) {
	return s.changeSaved(ctx, "UnsaveOfficeHour", userID, req, func(tx repository.Tx, ohID int64) error {
		err := tx.DeleteSavedOfficeHour(ctx, userID, ohID)
		if errors.Is(err, common.ErrNotFound) {
			return common.NewError(common.ErrNotFound, "Office hour is not saved!")
		}
		return err
	})
}

// changeSaved checks the user, the body and the office hour in that order,
// applies change and renders the updated user, all in one transaction.
func (s *UserService) changeSaved(ctx context.Context, op string, userID int64, req SaveOfficeHourRequest,
	change func(tx repository.Tx, ohID int64) error) (*view.UserView, error) {
	var out *view.UserView
	err := s.mutate(ctx, op, func(tx repository.Tx) error {
		user, err := tx.GetUser(ctx, userID)
		if err != nil {
			return notFound(err, errUserNotFound)
		}
		if req.OfficeHourID == nil {
			return common.NewError(common.ErrInvalidInput, "Missing required field (oh_id)!")
		}
		if _, err := tx.GetOfficeHour(ctx, *req.OfficeHourID); err != nil {
			return notFound(err, errOfficeHourNotFound)
		}
		if err := change(tx, *req.OfficeHourID); err != nil {
			return err
		}
		out, err = view.User(ctx, tx, user, view.Full)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
