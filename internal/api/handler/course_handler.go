package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"hoursly/internal/app/service"
	"hoursly/internal/common"
)

type CourseHandler struct {
	courseService *service.CourseService
	writeLimit    func(http.Handler) http.Handler
}

func NewCourseHandler(cs *service.CourseService, writeLimit func(http.Handler) http.Handler) *CourseHandler {
	if writeLimit == nil {
		writeLimit = noLimit
	}
	return &CourseHandler{courseService: cs, writeLimit: writeLimit}
}

func (h *CourseHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.listCourses)
	r.Get("/{courseID}", h.getCourse)
	r.Get("/code/{code}", h.getCourseByCode) // GET /api/courses/code/CS1998

	r.Group(func(w chi.Router) {
		w.Use(h.writeLimit)
		w.Post("/", h.createCourse)
		w.Delete("/{courseID}", h.deleteCourse)
		w.Post("/{courseID}/add", h.addUser)
		w.Post("/{courseID}/assignment", h.createAssignment)
		w.Post("/{courseID}/officehour", h.createOfficeHour)
	})
}

// RegisterAssignmentRoutes serves assignments by id under their own prefix.
func (h *CourseHandler) RegisterAssignmentRoutes(r chi.Router) {
	r.Get("/{assignmentID}", h.getAssignment)
}

func (h *CourseHandler) RegisterOfficeHourRoutes(r chi.Router) {
	r.Get("/{officeHourID}", h.getOfficeHour)
}

func (h *CourseHandler) listCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := h.courseService.ListCourses(r.Context())
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithSuccess(w, http.StatusOK, map[string]any{"courses": courses})
}

func (h *CourseHandler) createCourse(w http.ResponseWriter, r *http.Request) {
	var req service.CreateCourseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	course, err := h.courseService.CreateCourse(r.Context(), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithSuccess(w, http.StatusCreated, course)
}

func (h *CourseHandler) getCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "courseID", "Course not found!")
	if !ok {
		return
	}
	course, err := h.courseService.GetCourse(r.Context(), id)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithSuccess(w, http.StatusOK, course)
}

func (h *CourseHandler) getCourseByCode(w http.ResponseWriter, r *http.Request) {
	course, err := h.courseService.GetCourseByCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithSuccess(w, http.StatusOK, course)
}

func (h *CourseHandler) deleteCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "courseID", "Course not found!")
	if !ok {
		return
	}
	course, err := h.courseService.DeleteCourse(r.Context(), id)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithSuccess(w, http.StatusOK, course)
}

func (h *CourseHandler) addUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "courseID", "Course not found!")
	if !ok {
		return
	}
	var req service.AddUserRequest
	if !decodeBody(w, r, &req) {
		return
	}
	course, err := h.courseService.AddUser(r.Context(), id, req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithSuccess(w, http.StatusOK, course)
}

func (h *CourseHandler) createAssignment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "courseID", "Course not found!")
	if !ok {
		return
	}
	var req service.CreateAssignmentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	assignment, err := h.courseService.CreateAssignment(r.Context(), id, req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithSuccess(w, http.StatusCreated, assignment)
}

func (h *CourseHandler) getAssignment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "assignmentID", "Assignment not found!")
	if !ok {
		return
	}
	assignment, err := h.courseService.GetAssignment(r.Context(), id)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithSuccess(w, http.StatusOK, assignment)
}

func (h *CourseHandler) createOfficeHour(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "courseID", "Course not found!")
	if !ok {
		return
	}
	var req service.CreateOfficeHourRequest
	if !decodeBody(w, r, &req) {
		return
	}
	oh, err := h.courseService.CreateOfficeHour(r.Context(), id, req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithSuccess(w, http.StatusCreated, oh)
}

func (h *CourseHandler) getOfficeHour(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "officeHourID", "Office hour not found!")
	if !ok {
		return
	}
	oh, err := h.courseService.GetOfficeHour(r.Context(), id)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithSuccess(w, http.StatusOK, oh)
}
