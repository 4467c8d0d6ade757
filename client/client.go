// Package client provides a typed HTTP client for the flowboard API and a
// Session type mirroring server state for one board-viewing session.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/bytedance/sonic"

	"flowboard-api/domain"
)

// Client handles all communication with the flowboard API.
type Client struct {
	baseURL string
	hc      *http.Client
}

// New creates a client for the API served at baseURL.
func New(baseURL string) *Client {
	return &Client{baseURL: baseURL, hc: &http.Client{}}
}

// NewWithHTTPClient creates a client using the provided http.Client.
func NewWithHTTPClient(baseURL string, hc *http.Client) *Client {
	return &Client{baseURL: baseURL, hc: hc}
}

// do issues one API request with an optional JSON body.
func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := sonic.ConfigStd.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api unavailable: %w", err)
	}
	return resp, nil
}

// decodeInto consumes the response, failing on non-2xx statuses and
// surfacing the server's error message when one is present.
func decodeInto(resp *http.Response, out any) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr struct {
			Error string `json:"error"`
		}
		if err := sonic.Unmarshal(data, &apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("api error (%d): %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("api error (%d): %s", resp.StatusCode, string(data))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := sonic.ConfigStd.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// ListBoards returns all boards.
func (c *Client) ListBoards(ctx context.Context) ([]domain.Board, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/boards", nil)
	if err != nil {
		return nil, err
	}
	var boards []domain.Board
	if err := decodeInto(resp, &boards); err != nil {
		return nil, err
	}
	return boards, nil
}

// CreateBoard creates a board and returns its stored representation.
func (c *Client) CreateBoard(ctx context.Context, name, icon string) (domain.Board, error) {
	payload := map[string]string{"name": name, "icon": icon}
	resp, err := c.do(ctx, http.MethodPost, "/api/boards", payload)
	if err != nil {
		return domain.Board{}, err
	}
	var board domain.Board
	if err := decodeInto(resp, &board); err != nil {
		return domain.Board{}, err
	}
	return board, nil
}

// UpdateBoard applies the patch to the board.
func (c *Client) UpdateBoard(ctx context.Context, id string, patch domain.BoardPatch) error {
	resp, err := c.do(ctx, http.MethodPut, "/api/boards/"+url.PathEscape(id), patch)
	if err != nil {
		return err
	}
	return decodeInto(resp, nil)
}

// DeleteBoard removes the board; the server cascades to its items.
func (c *Client) DeleteBoard(ctx context.Context, id string) error {
	resp, err := c.do(ctx, http.MethodDelete, "/api/boards/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	return decodeInto(resp, nil)
}

// ListItems returns all items, or only the given board's when boardID is
// non-empty.
func (c *Client) ListItems(ctx context.Context, boardID string) ([]domain.Item, error) {
	path := "/api/items"
	if boardID != "" {
		path += "?boardId=" + url.QueryEscape(boardID)
	}
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var items []domain.Item
	if err := decodeInto(resp, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// CreateItem creates an item on the given board and returns its stored
// representation with all defaults filled by the server.
func (c *Client) CreateItem(ctx context.Context, boardID, name string) (domain.Item, error) {
	payload := map[string]string{"boardId": boardID, "name": name}
	resp, err := c.do(ctx, http.MethodPost, "/api/items", payload)
	if err != nil {
		return domain.Item{}, err
	}
	var item domain.Item
	if err := decodeInto(resp, &item); err != nil {
		return domain.Item{}, err
	}
	return item, nil
}

// UpdateItem applies the patch to the item.
func (c *Client) UpdateItem(ctx context.Context, id string, patch domain.ItemPatch) error {
	resp, err := c.do(ctx, http.MethodPut, "/api/items/"+url.PathEscape(id), patch)
	if err != nil {
		return err
	}
	return decodeInto(resp, nil)
}

// DeleteItem removes the item.
func (c *Client) DeleteItem(ctx context.Context, id string) error {
	resp, err := c.do(ctx, http.MethodDelete, "/api/items/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	return decodeInto(resp, nil)
}
