package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"hoursly/internal/app/service"
	"hoursly/internal/app/view"
	"hoursly/internal/common"
)

type UserHandler struct {
	userService *service.UserService
	writeLimit  func(http.Handler) http.Handler
}

// NewUserHandler wraps the mutating routes in writeLimit when it is non-nil.
func NewUserHandler(us *service.UserService, writeLimit func(http.Handler) http.Handler) *UserHandler {
	if writeLimit == nil {
		writeLimit = noLimit
	}
	return &UserHandler{userService: us, writeLimit: writeLimit}
}

func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Get("/{userID}", h.getUser) // GET /api/users/1

	r.Group(func(w chi.Router) {
		w.Use(h.writeLimit)
		w.Post("/", h.createUser)
		w.Delete("/{userID}", h.deleteUser)
		w.Post("/{userID}/save_officehour", h.saveOfficeHour)
		w.Post("/{userID}/unsave_officehour", h.unsaveOfficeHour)
	})
}

func (h *UserHandler) createUser(w http.ResponseWriter, r *http.Request) {
	var req service.CreateUserRequest
	if !decodeBody(w, r, &req) {
		return
	}
	user, err := h.userService.CreateUser(r.Context(), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithSuccess(w, http.StatusCreated, user)
}

func (h *UserHandler) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "userID", "User not found!")
	if !ok {
		return
	}
	user, err := h.userService.GetUser(r.Context(), id)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithSuccess(w, http.StatusOK, user)
}

func (h *UserHandler) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "userID", "User not found!")
	if !ok {
		return
	}
	user, err := h.userService.DeleteUser(r.Context(), id)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithSuccess(w, http.StatusOK, user)
}

func (h *UserHandler) saveOfficeHour(w http.ResponseWriter, r *http.Request) {
	h.changeSaved(w, r, h.userService.SaveOfficeHour)
}

func (h *UserHandler) unsaveOfficeHour(w http.ResponseWriter, r *http.Request) {
	h.changeSaved(w, r, h.userService.UnsaveOfficeHour)
}

func (h *UserHandler) changeSaved(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, userID int64, req service.SaveOfficeHourRequest) (*view.UserView, error)) {
	id, ok := pathID(w, r, "userID", "User not found!")
	if !ok {
		return
	}
	var req service.SaveOfficeHourRequest
	if !decodeBody(w, r, &req) {
		return
	}
	user, err := op(r.Context(), id, req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithSuccess(w, http.StatusOK, user)
}
