package skullboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"skullboard/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderClient_Render(t *testing.T) {
	received := make(chan models.RenderDocument, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/render", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var doc models.RenderDocument
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&doc))
		received <- doc
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png-bytes"))
	}))
	defer srv.Close()

	c := NewRenderClient(srv.URL+"/", srv.Client())
	doc := &models.RenderDocument{
		Message: models.RenderMessage{ID: "m1", Author: &models.RenderAuthor{ID: "u1"}},
		Repost:  models.RepostMeta{ReactionCount: 3, ReactionEmoji: "💀"},
	}
	png, err := c.Render(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(png))
	got := <-received
	assert.Equal(t, "m1", got.Message.ID)
	assert.Equal(t, 3, got.Repost.ReactionCount)
}

func TestRenderClient_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Screenshot failed"}`))
	}))
	defer srv.Close()

	_, err := NewRenderClient(srv.URL, srv.Client()).Render(context.Background(), &models.RenderDocument{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.Contains(t, err.Error(), "Screenshot failed")
}
