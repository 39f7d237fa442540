package skullboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"skullboard/models"
)

// Renderer produces the PNG for a document.
type Renderer interface {
	Render(ctx context.Context, doc *models.RenderDocument) ([]byte, error)
}

// RenderClient posts documents to the render service.
type RenderClient struct {
	endpoint string
	http     *http.Client
}

func NewRenderClient(baseURL string, client *http.Client) *RenderClient {
	if client == nil {
		client = &http.Client{Timeout: 3 * time.Minute}
	}
	return &RenderClient{
		endpoint: strings.TrimRight(baseURL, "/") + "/api/render",
		http:     client,
	}
}

func (c *RenderClient) Render(ctx context.Context, doc *models.RenderDocument) ([]byte, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build render request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach render service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("render service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	png, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read render response: %w", err)
	}
	return png, nil
}
