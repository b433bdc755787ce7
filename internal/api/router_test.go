package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"hoursly/internal/api/middleware"
	"hoursly/internal/app/service"
	"hoursly/internal/domain/repository"
	"hoursly/internal/platform/cache"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := repository.NewMemoryStore()
	logger := zap.NewNop()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	r := NewRouter(
		service.NewUserService(store, cache.Nop{}, logger),
		service.NewCourseService(store, cache.Nop{}, logger),
		middleware.NewRateLimiter(ctx, 1000, 1000),
		logger,
	)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode %s %s: %v", method, path, err)
	}
	return resp.StatusCode, out
}

func expectFailure(t *testing.T, code int, body map[string]any, wantCode int, wantMsg string) {
	t.Helper()
	if code != wantCode {
		t.Errorf("status = %d, want %d (body %v)", code, wantCode, body)
	}
	if body["success"] != false {
		t.Errorf("expected success=false, got %v", body)
	}
	if wantMsg != "" && body["error"] != wantMsg {
		t.Errorf("error = %v, want %q", body["error"], wantMsg)
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if resp.Header.Get(middleware.RequestIDHeader) == "" {
		t.Error("expected a request id header")
	}
}

func TestOfficeHourFlow(t *testing.T) {
	srv := newTestServer(t)

	code, user := do(t, srv, http.MethodPost, "/api/users/", map[string]any{"name": "Alice", "netid": "al1"})
	if code != http.StatusCreated || user["success"] != true || user["netid"] != "al1" {
		t.Fatalf("create user: %d %v", code, user)
	}
	if courses, ok := user["courses"].([]any); !ok || len(courses) != 0 {
		t.Errorf("expected empty courses list, got %v", user["courses"])
	}

	code, course := do(t, srv, http.MethodPost, "/api/courses", map[string]any{"code": "CS101", "name": "Intro"})
	if code != http.StatusCreated || course["code"] != "CS101" {
		t.Fatalf("create course: %d %v", code, course)
	}

	code, added := do(t, srv, http.MethodPost, "/api/courses/1/add/", map[string]any{"user_id": 1, "type": "TA"})
	if code != http.StatusOK {
		t.Fatalf("add user: %d %v", code, added)
	}
	if tas := added["tas"].([]any); len(tas) != 1 {
		t.Errorf("expected one TA, got %v", added["tas"])
	}

	code, oh := do(t, srv, http.MethodPost, "/api/courses/1/officehour/", map[string]any{
		"day": "Mon", "start_time": "2pm", "end_time": "3pm", "location": "Rm1", "ta_id": 1,
	})
	if code != http.StatusCreated {
		t.Fatalf("create office hour: %d %v", code, oh)
	}
	ta := oh["ta"].(map[string]any)
	if ta["netid"] != "al1" || ta["courses"] != nil {
		t.Errorf("expected truncated ta al1, got %v", ta)
	}

	code, saved := do(t, srv, http.MethodPost, "/api/users/1/save_officehour/", map[string]any{"oh_id": 1})
	if code != http.StatusOK || len(saved["saved_office_hours"].([]any)) != 1 {
		t.Fatalf("save: %d %v", code, saved)
	}
	code, body := do(t, srv, http.MethodPost, "/api/users/1/save_officehour/", map[string]any{"oh_id": 1})
	expectFailure(t, code, body, http.StatusBadRequest, "Office hour already saved!")

	code, body = do(t, srv, http.MethodGet, "/api/officehours/1", nil)
	if code != http.StatusOK || body["course"].(map[string]any)["code"] != "CS101" {
		t.Errorf("get office hour: %d %v", code, body)
	}
}

func TestCourseErrors(t *testing.T) {
	srv := newTestServer(t)

	code, body := do(t, srv, http.MethodGet, "/api/courses/42/", nil)
	expectFailure(t, code, body, http.StatusNotFound, "Course not found!")

	code, body = do(t, srv, http.MethodGet, "/api/courses/abc", nil)
	expectFailure(t, code, body, http.StatusNotFound, "Course not found!")

	code, body = do(t, srv, http.MethodPost, "/api/courses/", map[string]any{"code": "CS101"})
	expectFailure(t, code, body, http.StatusBadRequest, "Missing one or more required fields (code, name)!")

	code, body = do(t, srv, http.MethodPost, "/api/courses/", "{not json")
	expectFailure(t, code, body, http.StatusBadRequest, "")

	code, body = do(t, srv, http.MethodPost, "/api/courses/9/assignment/", map[string]any{"title": "HW1", "due_date": 1700000000})
	expectFailure(t, code, body, http.StatusNotFound, "Course not found!")

	do(t, srv, http.MethodPost, "/api/users/", map[string]any{"name": "Bob", "netid": "bb2"})
	do(t, srv, http.MethodPost, "/api/courses/", map[string]any{"code": "CS101", "name": "Intro"})
	do(t, srv, http.MethodPost, "/api/courses/1/add/", map[string]any{"user_id": 1, "type": "student"})

	code, body = do(t, srv, http.MethodPost, "/api/courses/1/officehour/", map[string]any{
		"day": "Mon", "start_time": "2pm", "end_time": "3pm", "location": "Rm1", "ta_id": 1,
	})
	expectFailure(t, code, body, http.StatusForbidden, "User is not a TA for this course!")

	code, body = do(t, srv, http.MethodPost, "/api/courses/1/assignment/", map[string]any{"title": "HW1", "due_date": "soon"})
	expectFailure(t, code, body, http.StatusBadRequest, "Due date must be an integer (UNIX timestamp)!")
}

func TestAssignmentAndDelete(t *testing.T) {
	srv := newTestServer(t)
	do(t, srv, http.MethodPost, "/api/courses/", map[string]any{"code": "CS 1998", "name": "Backend"})

	code, a := do(t, srv, http.MethodPost, "/api/courses/1/assignment/", map[string]any{"title": "HW1", "due_date": "1700000000"})
	if code != http.StatusCreated || a["due_date"] != float64(1700000000) {
		t.Fatalf("create assignment: %d %v", code, a)
	}

	code, list := do(t, srv, http.MethodGet, "/api/courses/", nil)
	courses, _ := list["courses"].([]any)
	if code != http.StatusOK || list["success"] != true || len(courses) != 1 {
		t.Fatalf("list courses: %d %v", code, list)
	}

	code, byCode := do(t, srv, http.MethodGet, "/api/courses/code/cs-1998", nil)
	if code != http.StatusOK || byCode["id"] != float64(1) {
		t.Errorf("get by code: %d %v", code, byCode)
	}

	code, deleted := do(t, srv, http.MethodDelete, "/api/courses/1/", nil)
	if code != http.StatusOK || len(deleted["assignments"].([]any)) != 1 {
		t.Fatalf("delete course: %d %v", code, deleted)
	}

	code, body := do(t, srv, http.MethodGet, "/api/assignments/1", nil)
	expectFailure(t, code, body, http.StatusNotFound, "Assignment not found!")
}
