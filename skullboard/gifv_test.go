package skullboard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveGif(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "skullboard")
		switch r.URL.Path {
		case "/script":
			w.Write([]byte(`<script>window.data = {"gif":"https://media1.tenor.com/m/Zz9/dance.gif"}</script>`))
		case "/none":
			w.Write([]byte(`<html><body><img src="https://media1.tenor.com/x/not-m.gif"></body></html>`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	ctx := context.Background()

	got, err := resolveGif(ctx, srv.Client(), srv.URL+"/script")
	require.NoError(t, err)
	assert.Equal(t, "https://media1.tenor.com/m/Zz9/dance.gif", got)

	got, err = resolveGif(ctx, srv.Client(), srv.URL+"/none")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = resolveGif(ctx, srv.Client(), srv.URL+"/missing")
	assert.Error(t, err)
}
