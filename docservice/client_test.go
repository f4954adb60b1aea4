package docservice

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/jsonpick/settings"
)

func TestCreate_PostsTitleAndContent(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/create.json", r.URL.Path)
		assert.Equal(t, "chrome-extension", r.URL.Query().Get("utm_source"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.JSONEq(t, `{"title":"users/1","content":{"a":1}}`, string(body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"abc","title":"users/1","location":"https://jsonhero.io/j/abc"}`))
	}))
	defer srv.Close()

	doc, err := New(5*time.Second).Create(context.Background(), srv.URL, "users/1", json.RawMessage(`{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, "https://jsonhero.io/j/abc", doc.Location)
	assert.Equal(t, "abc", doc.ID)
	assert.Equal(t, 1, calls)
}

func TestCreate_ErrorStatusIsNotRetried(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := New(5*time.Second).Create(context.Background(), srv.URL, "t", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Equal(t, 1, calls)
}

func TestCreate_UndecodableBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>oops</html>"))
	}))
	defer srv.Close()

	_, err := New(5*time.Second).Create(context.Background(), srv.URL, "t", 1)
	assert.Error(t, err)
}

func TestCreate_MissingLocation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"x"}`))
	}))
	defer srv.Close()

	_, err := New(5*time.Second).Create(context.Background(), srv.URL, "t", 1)
	assert.Error(t, err)
}

func TestCreate_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not be sent")
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(5*time.Second).Create(ctx, srv.URL, "t", 1)
	assert.Error(t, err)
}

func TestViewerURL(t *testing.T) {
	tests := []struct {
		name     string
		location string
		settings settings.Settings
		want     string
	}{
		{"defaults", "https://jsonhero.io/j/abc", settings.Settings{}, "https://jsonhero.io/j/abc?theme=dark"},
		{"column view", "https://jsonhero.io/j/abc", settings.Settings{Theme: "light", DefaultView: "column"}, "https://jsonhero.io/j/abc?theme=light"},
		{"tree view", "https://jsonhero.io/j/abc", settings.Settings{DefaultView: "tree"}, "https://jsonhero.io/j/abc/tree?theme=dark"},
		{"existing query", "https://jsonhero.io/j/abc?x=1", settings.Settings{Theme: "light"}, "https://jsonhero.io/j/abc?x=1&theme=light"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ViewerURL(tt.location, tt.settings)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestViewerURL_RelativeLocation(t *testing.T) {
	_, err := ViewerURL("/j/abc", settings.Settings{})
	assert.Error(t, err)
}

func TestThemedURL_IgnoresView(t *testing.T) {
	got, err := ThemedURL("https://jsonhero.io/j/abc", "")
	require.NoError(t, err)
	assert.Equal(t, "https://jsonhero.io/j/abc?theme=dark", got)
}
