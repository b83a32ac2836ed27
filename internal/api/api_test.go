package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskmanager/internal/memstore"
	"taskmanager/internal/model"
	"taskmanager/internal/service/auth"
	"taskmanager/internal/service/task"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var fixedNow = time.Date(2025, 6, 10, 14, 30, 15, 0, time.UTC)

type testServer struct {
	router *gin.Engine
	mem    *memstore.Store
}

func newTestServer(t *testing.T, mutate func(*Options)) *testServer {
	t.Helper()
	mem := memstore.New()
	now := func() time.Time { return fixedNow }

	authSvc := auth.NewService(mem.Users(), auth.NewMemorySessions(), nil, auth.Options{
		JWTSecret: "test-secret",
		JWTTTL:    time.Hour,
		Location:  time.UTC,
		Now:       now,
	}, zap.NewNop())
	taskSvc := task.NewService(mem.Tasks(), mem.Activity(), nil, task.Options{
		Transitions:    model.NewTransitions(model.TransitionStrict),
		Location:       time.UTC,
		InlineActivity: true,
		Now:            now,
	}, zap.NewNop())

	opts := Options{CORSOrigins: []string{"*"}, Location: time.UTC}
	if mutate != nil {
		mutate(&opts)
	}
	return &testServer{router: NewRouter(NewHandler(authSvc, taskSvc, opts, zap.NewNop())), mem: mem}
}

func (s *testServer) do(t *testing.T, method, path string, body any, token string) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	out := map[string]any{}
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, w.Body.String(), err)
		}
	}
	return w.Code, out
}

func (s *testServer) register(t *testing.T) string {
	t.Helper()
	code, body := s.do(t, http.MethodPost, "/register", map[string]string{
		"firstName": "jane",
		"lastName":  "doe",
		"dob":       "17-05-1990",
		"email":     "jane@example.com",
		"phone":     "555-0100",
		"password":  "hunter2",
	}, "")
	if code != http.StatusOK || body["ok"] != true {
		t.Fatalf("register: %d %v", code, body)
	}
	return body["userId"].(string)
}

func (s *testServer) createTask(t *testing.T, userID, title string) int64 {
	t.Helper()
	code, body := s.do(t, http.MethodPost, "/tasks", map[string]string{
		"title":    title,
		"priority": "High",
		"dueDate":  "2025-06-10",
		"userId":   userID,
	}, "")
	if code != http.StatusOK {
		t.Fatalf("create task: %d %v", code, body)
	}
	return int64(body["id"].(float64))
}

func TestRegisterThenLogin(t *testing.T) {
	s := newTestServer(t, nil)
	userID := s.register(t)
	if userID != "JD2081" {
		t.Fatalf("unexpected user id %q", userID)
	}

	code, body := s.do(t, http.MethodPost, "/login", map[string]string{
		"email":    "jane@example.com",
		"password": "hunter2",
	}, "")
	if code != http.StatusOK {
		t.Fatalf("login: %d %v", code, body)
	}
	if body["userId"] != userID || body["firstName"] != "jane" || body["token"] == "" {
		t.Fatalf("unexpected login body %v", body)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	s := newTestServer(t, nil)
	s.register(t)

	code, body := s.do(t, http.MethodPost, "/login", map[string]string{
		"email":    "jane@example.com",
		"password": "wrong",
	}, "")
	if code != http.StatusUnauthorized || body["ok"] != false {
		t.Fatalf("expected 401, got %d %v", code, body)
	}
}

func TestRegisterMissingFields(t *testing.T) {
	s := newTestServer(t, nil)
	code, body := s.do(t, http.MethodPost, "/register", map[string]string{"firstName": "a"}, "")
	if code != http.StatusBadRequest || body["error"] != auth.ErrMissingFields.Error() {
		t.Fatalf("expected 400 missing fields, got %d %v", code, body)
	}
}

func TestLogout(t *testing.T) {
	s := newTestServer(t, nil)
	userID := s.register(t)

	code, _ := s.do(t, http.MethodPost, "/logout", map[string]string{"userId": "nobody"}, "")
	if code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown user, got %d", code)
	}

	code, body := s.do(t, http.MethodPost, "/logout", map[string]string{"userId": userID}, "")
	if code != http.StatusOK || body["ok"] != true {
		t.Fatalf("logout: %d %v", code, body)
	}
}

func TestCreateTaskValidation(t *testing.T) {
	s := newTestServer(t, nil)

	cases := []map[string]string{
		{"title": "", "userId": "JD1"},
		{"title": "x"},
		{"title": "x", "userId": "JD1", "priority": "Urgent"},
		{"title": "x", "userId": "JD1", "status": "Blocked"},
		{"title": "x", "userId": "JD1", "dueDate": "someday"},
	}
	for _, in := range cases {
		code, body := s.do(t, http.MethodPost, "/tasks", in, "")
		if code != http.StatusBadRequest || body["ok"] != false {
			t.Errorf("%v: expected 400, got %d %v", in, code, body)
		}
	}
}

func TestListTasksRequiresUser(t *testing.T) {
	s := newTestServer(t, nil)
	code, _ := s.do(t, http.MethodGet, "/tasks", nil, "")
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}

func TestStatusRoundTrip(t *testing.T) {
	s := newTestServer(t, nil)
	id := s.createTask(t, "JD1", "write report")
	s.createTask(t, "XY9", "someone else")

	code, body := s.do(t, http.MethodPatch, "/tasks/"+strconv.FormatInt(id, 10), map[string]string{"status": "Completed"}, "")
	if code != http.StatusOK {
		t.Fatalf("patch: %d %v", code, body)
	}

	code, body = s.do(t, http.MethodGet, "/tasks?userId=JD1", nil, "")
	if code != http.StatusOK {
		t.Fatalf("list: %d %v", code, body)
	}
	tasks := body["tasks"].([]any)
	if len(tasks) != 1 {
		t.Fatalf("expected owner-filtered list, got %v", tasks)
	}
	got := tasks[0].(map[string]any)
	if got["status"] != "Completed" || got["completedAt"] != "2025-06-10T14:30:15.000Z" {
		t.Fatalf("unexpected task %v", got)
	}
	if got["date"] != "2025-06-10" || got["time"] != "14:30:15" || got["dueDate"] != "2025-06-10" {
		t.Fatalf("unexpected date fields %v", got)
	}
	if got["started"] != nil {
		t.Fatalf("started should be null, got %v", got["started"])
	}
}

func TestStatusErrors(t *testing.T) {
	s := newTestServer(t, nil)
	id := s.createTask(t, "JD1", "report")
	path := "/tasks/" + strconv.FormatInt(id, 10)

	if code, _ := s.do(t, http.MethodPatch, path, map[string]string{"status": "Done"}, ""); code != http.StatusBadRequest {
		t.Errorf("invalid status: expected 400, got %d", code)
	}
	if code, _ := s.do(t, http.MethodPatch, "/tasks/999", map[string]string{"status": "Completed"}, ""); code != http.StatusNotFound {
		t.Errorf("unknown id: expected 404, got %d", code)
	}
	if code, _ := s.do(t, http.MethodPatch, "/tasks/abc", map[string]string{"status": "Completed"}, ""); code != http.StatusBadRequest {
		t.Errorf("bad id: expected 400, got %d", code)
	}

	if code, _ := s.do(t, http.MethodPatch, path, map[string]string{"status": "Completed"}, ""); code != http.StatusOK {
		t.Fatalf("complete: expected 200, got %d", code)
	}
	if code, _ := s.do(t, http.MethodPatch, path, map[string]string{"status": "Not Started"}, ""); code != http.StatusConflict {
		t.Errorf("backward move: expected 409, got %d", code)
	}
}

func TestBoardAndActivity(t *testing.T) {
	s := newTestServer(t, nil)
	done := s.createTask(t, "JD1", "first")
	s.createTask(t, "JD1", "second")

	path := "/tasks/" + strconv.FormatInt(done, 10)
	if code, _ := s.do(t, http.MethodPatch, path, map[string]string{"status": "In Progress"}, ""); code != http.StatusOK {
		t.Fatalf("start: %d", code)
	}
	if code, _ := s.do(t, http.MethodPatch, path, map[string]string{"status": "Completed"}, ""); code != http.StatusOK {
		t.Fatalf("complete: %d", code)
	}

	code, body := s.do(t, http.MethodGet, "/board?userId=JD1", nil, "")
	if code != http.StatusOK {
		t.Fatalf("board: %d %v", code, body)
	}
	b := body["board"].(map[string]any)
	pct := b["percentages"].(map[string]any)
	if pct["completed"] != float64(50) || pct["notStarted"] != float64(50) || pct["inProgress"] != float64(0) {
		t.Fatalf("unexpected percentages %v", pct)
	}
	if len(b["dueToday"].([]any)) != 2 {
		t.Fatalf("expected both tasks due today, got %v", b["dueToday"])
	}
	latest := b["latestCompleted"].(map[string]any)
	if latest["id"] != float64(done) {
		t.Fatalf("unexpected latest completed %v", latest)
	}

	code, body = s.do(t, http.MethodGet, path+"/activity", nil, "")
	if code != http.StatusOK {
		t.Fatalf("activity: %d %v", code, body)
	}
	entries := body["activity"].([]any)
	if len(entries) != 2 {
		t.Fatalf("expected two activity entries, got %v", entries)
	}
	last := entries[1].(map[string]any)
	if last["from"] != "In Progress" || last["to"] != "Completed" {
		t.Fatalf("unexpected activity entry %v", last)
	}
}

func TestTokenSubjectMustMatch(t *testing.T) {
	s := newTestServer(t, nil)
	userID := s.register(t)
	_, login := s.do(t, http.MethodPost, "/login", map[string]string{
		"email":    "jane@example.com",
		"password": "hunter2",
	}, "")
	token := login["token"].(string)

	if code, _ := s.do(t, http.MethodGet, "/tasks?userId=someone-else", nil, token); code != http.StatusForbidden {
		t.Fatalf("expected 403 for foreign user id, got %d", code)
	}
	if code, _ := s.do(t, http.MethodGet, "/tasks?userId="+userID, nil, token); code != http.StatusOK {
		t.Fatalf("expected 200 for own user id, got %d", code)
	}
	if code, _ := s.do(t, http.MethodGet, "/tasks?userId="+userID, nil, "garbage"); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for invalid token, got %d", code)
	}

	other := s.createTask(t, "XY9", "not mine")
	code, _ := s.do(t, http.MethodPatch, "/tasks/"+strconv.FormatInt(other, 10), map[string]string{"status": "Completed"}, token)
	if code != http.StatusForbidden {
		t.Fatalf("expected 403 patching a foreign task, got %d", code)
	}
}

func TestRequireToken(t *testing.T) {
	s := newTestServer(t, func(o *Options) { o.RequireToken = true })
	code, body := s.do(t, http.MethodGet, "/tasks?userId=JD1", nil, "")
	if code != http.StatusUnauthorized || body["error"] != "missing token" {
		t.Fatalf("expected 401 missing token, got %d %v", code, body)
	}
}

func TestLogoutInvalidatesToken(t *testing.T) {
	s := newTestServer(t, func(o *Options) { o.RequireToken = true })
	userID := s.register(t)
	_, login := s.do(t, http.MethodPost, "/login", map[string]string{
		"email":    "jane@example.com",
		"password": "hunter2",
	}, "")
	token := login["token"].(string)

	if code, _ := s.do(t, http.MethodGet, "/tasks?userId="+userID, nil, token); code != http.StatusOK {
		t.Fatalf("expected 200 before logout, got %d", code)
	}
	if code, _ := s.do(t, http.MethodPost, "/logout", map[string]string{"userId": userID}, ""); code != http.StatusOK {
		t.Fatalf("logout: %d", code)
	}
	if code, _ := s.do(t, http.MethodGet, "/tasks?userId="+userID, nil, token); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", code)
	}
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodOptions, "/tasks", nil)
	req.Header.Set("Origin", "http://localhost:5500")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("allow origin = %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Methods"); got != "GET, POST, PATCH, OPTIONS" {
		t.Fatalf("allow methods = %q", got)
	}
}

func TestTraceHeaderEchoed(t *testing.T) {
	s := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Trace-ID", "abc-123")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK || w.Header().Get("X-Trace-ID") != "abc-123" {
		t.Fatalf("expected echoed trace id, got %d %q", w.Code, w.Header().Get("X-Trace-ID"))
	}
}

func TestReadiness(t *testing.T) {
	failing := newTestServer(t, func(o *Options) {
		o.Ready = []ReadyCheck{{Name: "store", Check: func(context.Context) error { return errors.New("down") }}}
	})
	code, body := failing.do(t, http.MethodGet, "/readyz", nil, "")
	if code != http.StatusServiceUnavailable || body["status"] != "store_not_ready" {
		t.Fatalf("expected store_not_ready, got %d %v", code, body)
	}

	store := memstore.New()
	ready := newTestServer(t, func(o *Options) {
		o.Ready = []ReadyCheck{{Name: "store", Check: store.Ping}}
	})
	if code, _ := ready.do(t, http.MethodGet, "/readyz", nil, ""); code != http.StatusOK {
		t.Fatalf("expected ready, got %d", code)
	}
}
