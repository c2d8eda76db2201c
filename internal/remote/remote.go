// Package remote posts snapshots to the save-content endpoint.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rcliao/cardfolio/internal/model"
	"github.com/rcliao/cardfolio/internal/store"
)

// SavePath is the endpoint path of the remote save handler.
const SavePath = "/api/save-content"

// SaveResponse is the success body of the save endpoint.
type SaveResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	SavedAt string `json:"savedAt"`
}

// ErrorResponse is the failure body of the save endpoint.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Saver sends a snapshot to remote storage.
type Saver interface {
	SaveContent(ctx context.Context, snap model.SavedContent) (*SaveResponse, error)
}

// StatusError is returned when the endpoint answers with a non-2xx status.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote save: status %d", e.Code)
	}
	return fmt.Sprintf("remote save: status %d: %s", e.Code, e.Message)
}

// Client posts snapshots over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for the server at baseURL. A zero timeout
// defaults to 10 seconds.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// SaveContent implements Saver.
func (c *Client) SaveContent(ctx context.Context, snap model.SavedContent) (*SaveResponse, error) {
	body, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+SavePath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote save: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var er ErrorResponse
		json.Unmarshal(data, &er)
		return nil, &StatusError{Code: resp.StatusCode, Message: er.Error}
	}

	var out SaveResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

// Local saves straight into a repository in the same process.
type Local struct {
	Repo store.Repository
}

// SaveContent implements Saver.
func (l Local) SaveContent(ctx context.Context, snap model.SavedContent) (*SaveResponse, error) {
	if err := l.Repo.Put(ctx, snap); err != nil {
		return nil, err
	}
	return &SaveResponse{Success: true, Message: "Content saved successfully", SavedAt: snap.SavedAt}, nil
}
