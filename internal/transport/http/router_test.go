package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/auth"
	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/infra/memory"
	"quiz-attempt-service/internal/logger"
	"quiz-attempt-service/internal/notify"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	handler    http.Handler
	tokens     *auth.Tokens
	hub        *memory.NotificationHub
	dispatcher *notify.Dispatcher
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	for _, u := range []struct {
		name string
		role domain.Role
	}{{"alice", domain.RoleUser}, {"bob", domain.RoleUser}, {"admin", domain.RoleAdmin}} {
		if _, err := store.Users().EnsureUser(ctx, u.name, u.role); err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}

	hub := memory.NewNotificationHub()
	dispatcher := notify.NewDispatcher(hub, logger.Nop(), notify.Options{})
	t.Cleanup(func() { _ = dispatcher.Close(context.Background()) })
	catalog := memory.NewQuizCatalog(memory.QuizLoaderFunc(store.Quizzes().FindQuiz), time.Minute)
	tokens := auth.NewTokens("test-secret", "quiz-service")

	router := NewRouter(RouterConfig{
		Attempts: app.WithLogging(app.NewAttemptService(store, dispatcher), logger.Nop()),
		Quizzes:  app.NewQuizService(store, catalog, logger.Nop()),
		Tokens:   tokens,
		Feed:     hub,
		Log:      logger.Nop(),
	})
	return &testServer{handler: router, tokens: tokens, hub: hub, dispatcher: dispatcher}
}

func (s *testServer) token(t *testing.T, username string, role domain.Role) string {
	t.Helper()
	raw, err := s.tokens.Issue(username, role, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return raw
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

// authorQ1 creates the two-question quiz whose correct answers are [2, 1] and returns it.
func authorQ1(t *testing.T, s *testServer) domain.Quiz {
	t.Helper()
	admin := s.token(t, "admin", domain.RoleAdmin)

	rec := s.do(t, http.MethodPost, "/quizzes", admin, map[string]interface{}{"title": "Q1", "category": "general", "difficulty": "EASY"})
	if rec.Code != http.StatusOK {
		t.Fatalf("create quiz: %d %s", rec.Code, rec.Body.String())
	}
	quiz := decode[domain.Quiz](t, rec)

	rec = s.do(t, http.MethodPost, "/quizzes/"+itoa(quiz.ID)+"/questions", admin, []map[string]interface{}{
		{"text": "one", "options": []string{"a", "b", "c"}, "correctOptionIndex": 2},
		{"text": "two", "options": []string{"a", "b"}, "correctOptionIndex": 1},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("add questions: %d %s", rec.Code, rec.Body.String())
	}
	return decode[domain.Quiz](t, rec)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("unexpected healthz %d %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}
}

func TestRoutesRequireBearerToken(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/quizzes", "/results/1"} {
		if rec := s.do(t, http.MethodGet, path, "", nil); rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s without token: %d", path, rec.Code)
		}
		if rec := s.do(t, http.MethodGet, path, "garbage", nil); rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s with bad token: %d", path, rec.Code)
		}
	}
}

func TestQueryTokenRejectedOnRESTRoutes(t *testing.T) {
	s := newTestServer(t)
	alice := s.token(t, "alice", domain.RoleUser)

	if rec := s.do(t, http.MethodGet, "/quizzes?token="+alice, "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("query token on REST route: %d", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/quizzes", alice, nil); rec.Code != http.StatusOK {
		t.Fatalf("header token on REST route: %d", rec.Code)
	}
}

func TestSubmitAndFetchAttempt(t *testing.T) {
	s := newTestServer(t)
	quiz := authorQ1(t, s)
	alice := s.token(t, "alice", domain.RoleUser)
	q1, q2 := itoa(quiz.Questions[0].ID), itoa(quiz.Questions[1].ID)

	cases := []struct {
		body    string
		score   float64
		correct int
	}{
		{`{"answers":{"` + q1 + `":2,"` + q2 + `":1}}`, 100, 2},
		{`{"answers":{"` + q1 + `":2,"` + q2 + `":0}}`, 50, 1},
		{`{"answers":{}}`, 0, 0},
	}
	var firstID int64
	for _, tc := range cases {
		rec := s.do(t, http.MethodPost, "/quizzes/"+itoa(quiz.ID)+"/attempt", alice, tc.body)
		if rec.Code != http.StatusOK {
			t.Fatalf("submit %s: %d %s", tc.body, rec.Code, rec.Body.String())
		}
		res := decode[domain.AttemptResult](t, rec)
		if res.Score != tc.score || res.CorrectAnswers != tc.correct || res.TotalQuestions != 2 || res.QuizTitle != "Q1" {
			t.Fatalf("submit %s: unexpected result %+v", tc.body, res)
		}
		if firstID == 0 {
			firstID = res.ID
		}
	}

	rec := s.do(t, http.MethodGet, "/results/"+itoa(firstID), alice, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("result: %d %s", rec.Code, rec.Body.String())
	}
	res := decode[domain.AttemptResult](t, rec)
	if res.Score != 100 || res.CorrectAnswers != 2 || res.UserAnswers[quiz.Questions[0].ID] != 2 {
		t.Fatalf("unexpected stored result %+v", res)
	}

	bob := s.token(t, "bob", domain.RoleUser)
	if rec := s.do(t, http.MethodGet, "/results/"+itoa(firstID), bob, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("other user: %d", rec.Code)
	}
	admin := s.token(t, "admin", domain.RoleAdmin)
	if rec := s.do(t, http.MethodGet, "/results/"+itoa(firstID), admin, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("admin: %d", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/results/9999", alice, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("missing attempt: %d", rec.Code)
	}
}

func TestSubmitRejectsBadRequests(t *testing.T) {
	s := newTestServer(t)
	quiz := authorQ1(t, s)
	alice := s.token(t, "alice", domain.RoleUser)
	path := "/quizzes/" + itoa(quiz.ID) + "/attempt"

	if rec := s.do(t, http.MethodPost, "/quizzes/9999/attempt", alice, `{"answers":{}}`); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown quiz: %d", rec.Code)
	}
	if rec := s.do(t, http.MethodPost, "/quizzes/abc/attempt", alice, `{"answers":{}}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad quiz id: %d", rec.Code)
	}
	if rec := s.do(t, http.MethodPost, path, alice, `{}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing answers: %d", rec.Code)
	}
	if rec := s.do(t, http.MethodPost, path, alice, `{"answers":{"x":1}}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("non numeric key: %d", rec.Code)
	}

	stranger := s.token(t, "mallory", domain.RoleUser)
	rec := s.do(t, http.MethodPost, path, stranger, `{"answers":{}}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown user: %d", rec.Code)
	}
	if body := decode[map[string]string](t, rec); !strings.Contains(body["error"], "user") {
		t.Fatalf("expected user not found message, got %v", body)
	}
}

func TestQuizAuthoringAndCatalog(t *testing.T) {
	s := newTestServer(t)
	alice := s.token(t, "alice", domain.RoleUser)
	admin := s.token(t, "admin", domain.RoleAdmin)

	if rec := s.do(t, http.MethodPost, "/quizzes", alice, map[string]interface{}{"title": "x", "category": "y", "difficulty": "EASY"}); rec.Code != http.StatusForbidden {
		t.Fatalf("user authoring: %d", rec.Code)
	}
	if rec := s.do(t, http.MethodPost, "/quizzes", admin, map[string]interface{}{"title": "x", "category": "y", "difficulty": "TRIVIAL"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid difficulty: %d", rec.Code)
	}
	if rec := s.do(t, http.MethodPost, "/quizzes", admin, `not json`); rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed body: %d", rec.Code)
	}

	quiz := authorQ1(t, s)
	if rec := s.do(t, http.MethodPost, "/quizzes/"+itoa(quiz.ID)+"/questions", admin, []map[string]interface{}{
		{"text": "bad", "options": []string{"a"}, "correctOptionIndex": 3},
	}); rec.Code != http.StatusBadRequest {
		t.Fatalf("out of range correct index: %d", rec.Code)
	}

	rec := s.do(t, http.MethodGet, "/quizzes/"+itoa(quiz.ID), alice, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get quiz: %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "correctOptionIndex") {
		t.Fatalf("quiz view leaks correct answers: %s", rec.Body.String())
	}
	view := decode[domain.QuizView](t, rec)
	if len(view.Questions) != 2 || view.Title != "Q1" {
		t.Fatalf("unexpected view %+v", view)
	}
	if rec := s.do(t, http.MethodGet, "/quizzes/9999", alice, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("missing quiz: %d", rec.Code)
	}

	rec = s.do(t, http.MethodGet, "/quizzes?category=general&difficulty=EASY", alice, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: %d", rec.Code)
	}
	page := decode[domain.QuizPage](t, rec)
	if page.Total != 1 || page.Size != 5 || len(page.Items) != 1 {
		t.Fatalf("unexpected page %+v", page)
	}
	if rec := s.do(t, http.MethodGet, "/quizzes?difficulty=TRIVIAL", alice, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad difficulty filter: %d", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/quizzes?page=two", alice, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad page: %d", rec.Code)
	}
}

type failingAttempts struct{ err error }

func (f failingAttempts) Submit(context.Context, domain.Principal, int64, domain.AnswerSet) (domain.AttemptResult, error) {
	return domain.AttemptResult{}, f.err
}

func (f failingAttempts) Result(context.Context, domain.Principal, int64) (domain.AttemptResult, error) {
	return domain.AttemptResult{}, f.err
}

func TestInternalErrorsAreNotEchoed(t *testing.T) {
	tokens := auth.NewTokens("secret", "")
	router := NewRouter(RouterConfig{
		Attempts: failingAttempts{err: domain.ErrInternal},
		Tokens:   tokens,
	})
	raw, _ := tokens.Issue("alice", domain.RoleUser, time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/results/1", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if body := decode[map[string]string](t, rec); body["error"] != "internal error" {
		t.Fatalf("unexpected body %v", body)
	}
}
