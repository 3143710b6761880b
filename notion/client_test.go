package notion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/a13xperi/kaa-notion-backend-sub005/errors"
	"github.com/a13xperi/kaa-notion-backend-sub005/logger"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(ClientConfig{
		Token:             "test-token",
		BaseURL:           server.URL,
		RequestsPerSecond: 1000,
	}, logger.Nop())
}

func TestClient_UnconfiguredRefusesRequests(t *testing.T) {
	client := NewClient(ClientConfig{}, logger.Nop())

	if client.Configured() {
		t.Fatal("client without token reports configured")
	}
	_, err := client.CreatePage(context.Background(), "db-1", Properties{}, nil)
	if !errors.Is(err, errors.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestClient_SetsAuthAndVersionHeaders(t *testing.T) {
	var gotAuth, gotVersion string
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotVersion = r.Header.Get("Notion-Version")
		json.NewEncoder(w).Encode(Page{ID: "page-1"})
	})

	if _, err := client.CreatePage(context.Background(), "db-1", Properties{}, nil); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotVersion != apiVersion {
		t.Errorf("Notion-Version = %q, want %q", gotVersion, apiVersion)
	}
}

func TestClient_APIErrorCarriesCodeAndMessage(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{
			"code":    "rate_limited",
			"message": "slow down",
		})
	})

	_, err := client.UpdatePage(context.Background(), "page-1", Properties{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", apiErr.Status)
	}
	if apiErr.Code != "rate_limited" {
		t.Errorf("code = %q, want rate_limited", apiErr.Code)
	}
}

// Given: a block with two pages of children
// When: ListChildren runs
// Then: it follows the cursor and returns the full set
func TestClient_ListChildrenFollowsPagination(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("start_cursor") == "" {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"results":     []Block{{ID: "b1", Type: "to_do"}},
				"has_more":    true,
				"next_cursor": "cursor-2",
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"results":  []Block{{ID: "b2", Type: "to_do"}},
			"has_more": false,
		})
	})

	blocks, err := client.ListChildren(context.Background(), "page-1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(blocks) != 2 || blocks[0].ID != "b1" || blocks[1].ID != "b2" {
		t.Fatalf("blocks = %+v, want b1 then b2", blocks)
	}
}

func TestBlock_PlainTextReadsBothShapes(t *testing.T) {
	// API responses carry plain_text
	fromAPI := Block{Type: "heading_2", Heading2: &RichTextBlock{
		RichText: []RichText{{PlainText: "Milestones"}},
	}}
	if got := fromAPI.PlainText(); got != "Milestones" {
		t.Errorf("plain_text shape: %q", got)
	}

	// Locally built blocks carry text content
	local := NewHeading2("Deliverables")
	if got := local.PlainText(); got != "Deliverables" {
		t.Errorf("text content shape: %q", got)
	}
}

func TestBlock_IsHeading(t *testing.T) {
	if !NewHeading2("x").IsHeading() {
		t.Error("heading_2 not recognized as heading")
	}
	if NewToDo("x", false).IsHeading() {
		t.Error("to_do recognized as heading")
	}
}
