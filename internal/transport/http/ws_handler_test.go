package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"quiz-attempt-service/internal/domain"
)

func TestNotificationFeedDeliversOwnAttempts(t *testing.T) {
	s := newTestServer(t)
	quiz := authorQ1(t, s)
	alice := s.token(t, "alice", domain.RoleUser)

	server := httptest.NewServer(s.handler)
	defer server.Close()

	u := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/notifications?token=" + alice
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	typ, payload := readNext(t, conn)
	if typ != "subscribed" || payload["username"] != "alice" {
		t.Fatalf("expected subscribed for alice, got %s %v", typ, payload)
	}

	// bob's attempt must not reach alice's feed
	bob := s.token(t, "bob", domain.RoleUser)
	if rec := s.do(t, http.MethodPost, "/quizzes/"+itoa(quiz.ID)+"/attempt", bob, `{"answers":{}}`); rec.Code != http.StatusOK {
		t.Fatalf("bob submit: %d", rec.Code)
	}
	body := `{"answers":{"` + itoa(quiz.Questions[0].ID) + `":2}}`
	if rec := s.do(t, http.MethodPost, "/quizzes/"+itoa(quiz.ID)+"/attempt", alice, body); rec.Code != http.StatusOK {
		t.Fatalf("alice submit: %d", rec.Code)
	}

	typ, payload = readNext(t, conn)
	if typ != "notification" {
		t.Fatalf("expected notification, got %s", typ)
	}
	if payload["quizTitle"] != "Q1" || payload["score"] != float64(50) {
		t.Fatalf("unexpected notification %v", payload)
	}
}

func TestNotificationFeedRequiresToken(t *testing.T) {
	s := newTestServer(t)
	server := httptest.NewServer(s.handler)
	defer server.Close()

	u := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/notifications"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected handshake failure")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %+v", resp)
	}
}

func TestNotificationFeedUnsubscribesOnDisconnect(t *testing.T) {
	s := newTestServer(t)
	alice := s.token(t, "alice", domain.RoleUser)
	server := httptest.NewServer(s.handler)
	defer server.Close()

	u := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/notifications?token=" + alice
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	readNext(t, conn)
	if got := s.hub.Subscribers("alice"); got != 1 {
		t.Fatalf("expected one subscriber, got %d", got)
	}
	conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for s.hub.Subscribers("alice") != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("subscription not released after disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func readNext(t *testing.T, conn *websocket.Conn) (string, map[string]interface{}) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]interface{} `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	return msg.Type, msg.Payload
}
