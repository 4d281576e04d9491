package realtime

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"kanban-api/domain"
)

type staticAuth struct{}

func (staticAuth) UserIDFromAuthHeader(h string) (string, error) {
	if h == "" {
		return "", errors.New("missing authorization header")
	}
	return "alice", nil
}

type mapAccess map[string]bool

func (m mapAccess) CanAccess(_ context.Context, boardID, _ string) (bool, error) {
	return m[boardID], nil
}

func newWSServer(t *testing.T, hub *Hub, access Access) *httptest.Server {
	t.Helper()
	e := echo.New()
	e.GET("/ws", Handler(hub, staticAuth{}, access, log.New()))
	ts := httptest.NewServer(e)
	t.Cleanup(ts.Close)
	return ts
}

func dialWS(t *testing.T, ctx context.Context, serverURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.Dial(ctx, "ws"+serverURL[len("http"):]+"/ws", &websocket.DialOptions{
		HTTPHeader: http.Header{"Authorization": []string{"Bearer token"}},
	})
	if err != nil {
		t.Fatalf("websocket dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "test done") })
	return conn
}

func readMessage(t *testing.T, ctx context.Context, conn *websocket.Conn) map[string]any {
	t.Helper()
	var msg map[string]any
	if err := wsjson.Read(ctx, conn, &msg); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return msg
}

func TestWSJoinAndReceiveEvents(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	hub := NewHub()
	ts := newWSServer(t, hub, mapAccess{"b1": true})
	conn := dialWS(t, ctx, ts.URL)

	welcome := readMessage(t, ctx, conn)
	if welcome["type"] != "welcome" {
		t.Fatalf("expected welcome frame, got %v", welcome)
	}
	connID, _ := welcome["connectionId"].(string)
	if connID == "" {
		t.Fatal("welcome frame carries no connection id")
	}

	if err := wsjson.Write(ctx, conn, map[string]string{"action": "join", "boardId": "b1"}); err != nil {
		t.Fatalf("send join: %v", err)
	}
	joined := readMessage(t, ctx, conn)
	if joined["type"] != "joined" || joined["boardId"] != "b1" {
		t.Fatalf("expected joined ack, got %v", joined)
	}

	task := domain.Task{ID: "t1", Title: "hello", Board: "b1", Status: domain.StatusTodo}
	hub.Publish(domain.NewTaskEvent(domain.TaskCreated, task), "")

	ev := readMessage(t, ctx, conn)
	if ev["type"] != domain.TaskCreated || ev["boardId"] != "b1" {
		t.Fatalf("unexpected event frame: %v", ev)
	}

	// Events published with this connection as the origin are not echoed back.
	hub.Publish(domain.NewDeletionEvent("b1", "t1"), connID)
	hub.Publish(domain.NewDeletionEvent("b1", "t2"), "")
	next := readMessage(t, ctx, conn)
	if next["type"] != domain.TaskDeleted {
		t.Fatalf("expected deletion event, got %v", next)
	}
	deletion, _ := next["deletion"].(map[string]any)
	if deletion == nil || deletion["taskId"] != "t2" {
		t.Fatalf("origin-excluded event leaked through: %v", next)
	}
}

func TestWSJoinDenied(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	hub := NewHub()
	ts := newWSServer(t, hub, mapAccess{})
	conn := dialWS(t, ctx, ts.URL)
	_ = readMessage(t, ctx, conn) // welcome

	if err := wsjson.Write(ctx, conn, map[string]string{"action": "join", "boardId": "secret"}); err != nil {
		t.Fatalf("send join: %v", err)
	}
	denied := readMessage(t, ctx, conn)
	if denied["type"] != "error" || denied["error"] != "access denied" {
		t.Fatalf("expected access denial, got %v", denied)
	}
	if hub.SubscriberCount("secret") != 0 {
		t.Fatal("denied connection was subscribed anyway")
	}
}

func TestWSLeaveStopsEvents(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	hub := NewHub()
	ts := newWSServer(t, hub, mapAccess{"b1": true})
	conn := dialWS(t, ctx, ts.URL)
	_ = readMessage(t, ctx, conn) // welcome

	if err := wsjson.Write(ctx, conn, map[string]string{"action": "join", "boardId": "b1"}); err != nil {
		t.Fatalf("send join: %v", err)
	}
	_ = readMessage(t, ctx, conn) // joined

	if err := wsjson.Write(ctx, conn, map[string]string{"action": "leave", "boardId": "b1"}); err != nil {
		t.Fatalf("send leave: %v", err)
	}
	left := readMessage(t, ctx, conn)
	if left["type"] != "left" {
		t.Fatalf("expected left ack, got %v", left)
	}
	if hub.SubscriberCount("b1") != 0 {
		t.Fatal("subscription survived leave")
	}
}

func TestWSRequiresAuth(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	hub := NewHub()
	ts := newWSServer(t, hub, mapAccess{})
	_, resp, err := websocket.Dial(ctx, "ws"+ts.URL[len("http"):]+"/ws", nil)
	if err == nil {
		t.Fatal("expected unauthenticated dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %+v", resp)
	}
}

func TestWSDisconnectReleasesSubscriptions(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	hub := NewHub()
	ts := newWSServer(t, hub, mapAccess{"b1": true})
	conn := dialWS(t, ctx, ts.URL)
	_ = readMessage(t, ctx, conn) // welcome
	if err := wsjson.Write(ctx, conn, map[string]string{"action": "join", "boardId": "b1"}); err != nil {
		t.Fatalf("send join: %v", err)
	}
	_ = readMessage(t, ctx, conn) // joined

	_ = conn.Close(websocket.StatusNormalClosure, "bye")

	deadline := time.Now().Add(2 * time.Second)
	for hub.SubscriberCount("b1") != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscription leaked after disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
