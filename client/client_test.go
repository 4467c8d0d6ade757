package client

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bytedance/sonic"

	"flowboard-api/domain"
)

func TestListBoards(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/boards" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"1","name":"Ops","icon":"🔥"}]`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	boards, err := c.ListBoards(context.Background())
	if err != nil {
		t.Fatalf("list boards: %v", err)
	}
	if len(boards) != 1 || boards[0].Name != "Ops" {
		t.Fatalf("unexpected boards: %+v", boards)
	}
}

func TestCreateBoardSendsPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/boards" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		if err := sonic.ConfigStd.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body["name"] != "Launch" || body["icon"] != "🚀" {
			t.Errorf("unexpected payload: %v", body)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"77","name":"Launch","icon":"🚀"}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	board, err := c.CreateBoard(context.Background(), "Launch", "🚀")
	if err != nil {
		t.Fatalf("create board: %v", err)
	}
	if board.ID != "77" {
		t.Fatalf("unexpected board: %+v", board)
	}
}

func TestListItemsFilter(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	if _, err := c.ListItems(context.Background(), "board 3"); err != nil {
		t.Fatalf("list items: %v", err)
	}
	if gotQuery != "boardId=board+3" {
		t.Fatalf("unexpected query %q", gotQuery)
	}

	if _, err := c.ListItems(context.Background(), ""); err != nil {
		t.Fatalf("list all items: %v", err)
	}
	if gotQuery != "" {
		t.Fatalf("expected no query without a board filter, got %q", gotQuery)
	}
}

func TestUpdateItemSendsPatch(t *testing.T) {
	var gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		data, _ := io.ReadAll(r.Body)
		gotBody = string(data)
		_, _ = w.Write([]byte(`{"message":"Item updated successfully"}`))
	}))
	defer srv.Close()

	status := domain.StatusDone
	c := New(srv.URL)
	if err := c.UpdateItem(context.Background(), "9", domain.ItemPatch{Status: &status}); err != nil {
		t.Fatalf("update item: %v", err)
	}
	if gotPath != "/api/items/9" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if !strings.Contains(gotBody, `"status":"done"`) {
		t.Fatalf("patch not sent: %q", gotBody)
	}
}

func TestServerErrorSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Failed to fetch boards"}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.ListBoards(context.Background())
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "Failed to fetch boards") {
		t.Fatalf("server message lost: %v", err)
	}
	if !strings.Contains(err.Error(), "500") {
		t.Fatalf("status code lost: %v", err)
	}
}

func TestUnreachableServer(t *testing.T) {
	c := New("http://127.0.0.1:1")
	if _, err := c.ListBoards(context.Background()); err == nil {
		t.Fatal("expected an error for an unreachable server")
	}
}
