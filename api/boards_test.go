package api

import (
	"net/http"
	"testing"

	"github.com/bytedance/sonic"

	"kanban-api/domain"
)

func TestPostBoardCreatesOwnedBoard(t *testing.T) {
	store := newMockStore()

	c, rec := newHandlerContext(newJSONRequest(http.MethodPost, "/api/boards", `{"title":"Roadmap","isPublic":true}`))
	if err := postBoard(store, staticAuth{user: "alice"})(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201 got %d: %s", rec.Code, rec.Body.String())
	}
	var board domain.Board
	if err := sonic.Unmarshal(rec.Body.Bytes(), &board); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if board.Owner != "alice" || !board.IsPublic {
		t.Fatalf("unexpected board: %#v", board)
	}
	if _, ok := store.boards[board.ID]; !ok {
		t.Fatal("expected board to be persisted")
	}
}

func TestPostBoardValidation(t *testing.T) {
	store := newMockStore()

	c, rec := newHandlerContext(newJSONRequest(http.MethodPost, "/api/boards", `{"title":""}`))
	if err := postBoard(store, staticAuth{user: "alice"})(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 got %d", rec.Code)
	}
}

func TestGetBoardAccess(t *testing.T) {
	store := newMockStore()
	seedBoard(store, "b1", "alice", []string{"bob"}, false)
	seedBoard(store, "b2", "alice", nil, true)

	testCases := []struct {
		name    string
		boardID string
		actor   string
		want    int
	}{
		{"owner", "b1", "alice", http.StatusOK},
		{"member", "b1", "bob", http.StatusOK},
		{"stranger_private", "b1", "mallory", http.StatusForbidden},
		{"stranger_public", "b2", "mallory", http.StatusOK},
		{"missing", "nope", "alice", http.StatusNotFound},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c, rec := newHandlerContext(newJSONRequest(http.MethodGet, "/api/boards/"+tc.boardID, ""))
			c.SetParamNames("id")
			c.SetParamValues(tc.boardID)
			if err := getBoard(store, staticAuth{user: tc.actor})(c); err != nil {
				t.Fatalf("handler returned error: %v", err)
			}
			if rec.Code != tc.want {
				t.Fatalf("expected status %d got %d", tc.want, rec.Code)
			}
		})
	}
}

func TestPutBoardOwnerOnly(t *testing.T) {
	store := newMockStore()
	seedBoard(store, "b1", "alice", []string{"bob"}, false)

	c, rec := newHandlerContext(newJSONRequest(http.MethodPut, "/api/boards/b1", `{"title":"Renamed"}`))
	c.SetParamNames("id")
	c.SetParamValues("b1")
	if err := putBoard(store, staticAuth{user: "bob"})(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected member update to be forbidden, got %d", rec.Code)
	}

	c, rec = newHandlerContext(newJSONRequest(http.MethodPut, "/api/boards/b1", `{"title":"Renamed","isPublic":true}`))
	c.SetParamNames("id")
	c.SetParamValues("b1")
	if err := putBoard(store, staticAuth{user: "alice"})(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}
	if store.boards["b1"].Title != "Renamed" || !store.boards["b1"].IsPublic {
		t.Fatalf("unexpected board state: %#v", store.boards["b1"])
	}
}

func TestListBoardsMembership(t *testing.T) {
	store := newMockStore()
	seedBoard(store, "b1", "alice", nil, false)
	seedBoard(store, "b2", "carol", []string{"alice"}, false)
	seedBoard(store, "b3", "carol", nil, false)

	c, rec := newHandlerContext(newJSONRequest(http.MethodGet, "/api/boards", ""))
	if err := listBoards(store, staticAuth{user: "alice"})(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}
	var boards []domain.Board
	if err := sonic.Unmarshal(rec.Body.Bytes(), &boards); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(boards) != 2 {
		t.Fatalf("expected 2 boards, got %d", len(boards))
	}
}

func TestMemberManagement(t *testing.T) {
	store := newMockStore()
	seedBoard(store, "b1", "alice", nil, false)

	c, rec := newHandlerContext(newJSONRequest(http.MethodPost, "/api/boards/b1/members", `{"userId":"bob"}`))
	c.SetParamNames("id")
	c.SetParamValues("b1")
	if err := postMember(store, staticAuth{user: "alice"})(c); err != nil {
		t.Fatalf("add member: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}
	if members := store.boards["b1"].Members; len(members) != 1 || members[0] != "bob" {
		t.Fatalf("unexpected members: %#v", members)
	}

	// Adding the same member twice changes nothing.
	c, _ = newHandlerContext(newJSONRequest(http.MethodPost, "/api/boards/b1/members", `{"userId":"bob"}`))
	c.SetParamNames("id")
	c.SetParamValues("b1")
	if err := postMember(store, staticAuth{user: "alice"})(c); err != nil {
		t.Fatalf("re-add member: %v", err)
	}
	if members := store.boards["b1"].Members; len(members) != 1 {
		t.Fatalf("expected member list to stay deduplicated, got %#v", members)
	}

	// The owner never joins the member list.
	c, _ = newHandlerContext(newJSONRequest(http.MethodPost, "/api/boards/b1/members", `{"userId":"alice"}`))
	c.SetParamNames("id")
	c.SetParamValues("b1")
	if err := postMember(store, staticAuth{user: "alice"})(c); err != nil {
		t.Fatalf("add owner: %v", err)
	}
	if members := store.boards["b1"].Members; len(members) != 1 {
		t.Fatalf("expected owner to stay implicit, got %#v", members)
	}

	c, rec = newHandlerContext(newJSONRequest(http.MethodDelete, "/api/boards/b1/members/bob", ""))
	c.SetParamNames("id", "userId")
	c.SetParamValues("b1", "bob")
	if err := deleteMember(store, staticAuth{user: "alice"})(c); err != nil {
		t.Fatalf("remove member: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}
	if members := store.boards["b1"].Members; len(members) != 0 {
		t.Fatalf("expected empty member list, got %#v", members)
	}
}

func TestMemberManagementOwnerOnly(t *testing.T) {
	store := newMockStore()
	seedBoard(store, "b1", "alice", []string{"bob"}, false)

	c, rec := newHandlerContext(newJSONRequest(http.MethodPost, "/api/boards/b1/members", `{"userId":"carol"}`))
	c.SetParamNames("id")
	c.SetParamValues("b1")
	if err := postMember(store, staticAuth{user: "bob"})(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status 403 got %d", rec.Code)
	}
}

func TestDeleteBoardOwnerOnly(t *testing.T) {
	store := newMockStore()
	seedBoard(store, "b1", "alice", []string{"bob"}, false)
	seedTask(store, "t1", "b1", domain.StatusTodo, 0)

	c, rec := newHandlerContext(newJSONRequest(http.MethodDelete, "/api/boards/b1", ""))
	c.SetParamNames("id")
	c.SetParamValues("b1")
	if err := deleteBoard(store, staticAuth{user: "bob"})(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status 403 got %d", rec.Code)
	}

	c, rec = newHandlerContext(newJSONRequest(http.MethodDelete, "/api/boards/b1", ""))
	c.SetParamNames("id")
	c.SetParamValues("b1")
	if err := deleteBoard(store, staticAuth{user: "alice"})(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204 got %d", rec.Code)
	}
	if len(store.boards) != 0 || len(store.tasks) != 0 {
		t.Fatal("expected board and its tasks to be removed")
	}
}
