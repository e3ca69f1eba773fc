package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/tunebox/internal/models"
	"github.com/desertthunder/tunebox/internal/repositories"
	"github.com/desertthunder/tunebox/internal/shared"
	"github.com/desertthunder/tunebox/internal/tasks"
)

func testLogger() *log.Logger {
	return shared.NewLogger(&bytes.Buffer{})
}

type testEnv struct {
	handler http.Handler
	root    string
	static  string
}

func newTestEnv(t *testing.T, mutate func(*shared.ServerConfig)) *testEnv {
	t.Helper()
	static := t.TempDir()
	root := filepath.Join(static, "DB")
	logger := testLogger()

	store := repositories.NewPlaylistStore(root, "Favorites", nil, logger)
	pool := tasks.NewCoverPool(nil, tasks.CoverPoolOpts{Workers: 1}, logger)
	pool.Start(context.Background())
	t.Cleanup(pool.Stop)
	library := tasks.NewLibrary(store, tasks.NewIngestor(store, pool, logger), logger)

	config := shared.DefaultConfig().Server
	config.StaticDir = static
	config.AllowedOrigins = []string{"https://app.example"}
	if mutate != nil {
		mutate(&config)
	}

	return &testEnv{handler: New(config, library, "bot-token", logger).Handler(), root: root, static: static}
}

func (e *testEnv) postJSON(t *testing.T, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if s, ok := body.(string); ok {
		buf.WriteString(s)
	} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
		t.Fatalf("failed to encode body: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) upload(t *testing.T, trackData string, audio []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if trackData != "" {
		mw.WriteField("track_data", trackData)
	}
	if audio != nil {
		fw, err := mw.CreateFormFile("file", "song.mp3")
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(audio)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/add_track", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("invalid JSON response %q: %v", rec.Body.String(), err)
	}
	return v
}

type listing struct {
	Playlists []models.PlaylistView `json:"playlists"`
}

type mutation struct {
	Status    string            `json:"status"`
	Playlists []models.Playlist `json:"playlists"`
}

func initData(values url.Values) string {
	return values.Encode()
}

func TestAuthRoute(t *testing.T) {
	userJSON := `{"id":42,"first_name":"Ann"}`

	t.Run("extracts numeric user id", func(t *testing.T) {
		env := newTestEnv(t, nil)
		data := "query_id=AAA&user=" + url.PathEscape(userJSON) + "&auth_date=1700000000&hash=abc"

		rec := env.postJSON(t, "/auth", map[string]string{"tgWebAppData": data})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
		}
		if strings.TrimSpace(rec.Body.String()) != `{"user_id":42}` {
			t.Errorf("unexpected body %s", rec.Body)
		}
	})

	t.Run("missing payload", func(t *testing.T) {
		env := newTestEnv(t, nil)
		if rec := env.postJSON(t, "/auth", map[string]string{}); rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("unparsable payload", func(t *testing.T) {
		env := newTestEnv(t, nil)
		for _, data := range []string{"garbage", "user=%7Bnot-json", "user=%7B%7D"} {
			rec := env.postJSON(t, "/auth", map[string]string{"tgWebAppData": data})
			if rec.Code != http.StatusForbidden {
				t.Errorf("%q: expected 403, got %d", data, rec.Code)
			}
		}
	})

	t.Run("signature verification", func(t *testing.T) {
		env := newTestEnv(t, func(c *shared.ServerConfig) { c.VerifyInitData = true })
		values := url.Values{"user": {userJSON}, "auth_date": {"1700000000"}, "query_id": {"AAA"}}
		values.Set("hash", SignInitData(values, "bot-token"))

		rec := env.postJSON(t, "/auth", map[string]string{"tgWebAppData": initData(values)})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 for signed data, got %d: %s", rec.Code, rec.Body)
		}

		values.Set("user", `{"id":43}`)
		rec = env.postJSON(t, "/auth", map[string]string{"tgWebAppData": initData(values)})
		if rec.Code != http.StatusForbidden {
			t.Errorf("expected 403 for tampered data, got %d", rec.Code)
		}
	})
}

func TestPlaylistRoutes(t *testing.T) {
	t.Run("new user lists exactly the default playlist", func(t *testing.T) {
		env := newTestEnv(t, nil)
		rec := env.postJSON(t, "/playlists", map[string]any{"user_id": 7})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
		}

		body := decodeBody[listing](t, rec)
		if len(body.Playlists) != 1 || body.Playlists[0].Name != "Favorites" || len(body.Playlists[0].Tracks) != 0 {
			t.Errorf("unexpected playlists %+v", body.Playlists)
		}
		if _, err := os.Stat(filepath.Join(env.root, "user_7", "playlists.json")); err != nil {
			t.Errorf("expected playlists file to be created: %v", err)
		}
	})

	t.Run("input errors", func(t *testing.T) {
		env := newTestEnv(t, nil)
		cases := []struct {
			path string
			body any
		}{
			{"/playlists", map[string]any{}},
			{"/playlists", `{"user_id": true}`},
			{"/playlists", `not json`},
			{"/playlists", map[string]any{"user_id": "../etc"}},
			{"/create_playlist", map[string]any{"user_id": 1}},
			{"/create_playlist", map[string]any{"user_id": 1, "playlist": map[string]any{"name": " "}}},
			{"/delete_playlist", map[string]any{"user_id": 1}},
		}
		for _, tc := range cases {
			if rec := env.postJSON(t, tc.path, tc.body); rec.Code != http.StatusBadRequest {
				t.Errorf("%s %v: expected 400, got %d", tc.path, tc.body, rec.Code)
			}
		}
	})

	t.Run("create then list", func(t *testing.T) {
		env := newTestEnv(t, nil)
		rec := env.postJSON(t, "/create_playlist", map[string]any{"user_id": "5", "playlist": map[string]any{"name": "Rock"}})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
		}
		created := decodeBody[mutation](t, rec)
		if created.Status != "success" || len(created.Playlists) != 2 {
			t.Errorf("unexpected create response %+v", created)
		}

		body := decodeBody[listing](t, env.postJSON(t, "/playlists", map[string]any{"user_id": 5}))
		if len(body.Playlists) != 2 || body.Playlists[1].Name != "Rock" {
			t.Errorf("expected Rock in listing, got %+v", body.Playlists)
		}
	})

	t.Run("delete", func(t *testing.T) {
		env := newTestEnv(t, nil)

		rec := env.postJSON(t, "/delete_playlist", map[string]any{"user_id": 3, "playlist_name": "Rock"})
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404 without playlists file, got %d", rec.Code)
		}

		env.postJSON(t, "/playlists", map[string]any{"user_id": 3})
		rec = env.postJSON(t, "/delete_playlist", map[string]any{"user_id": 3, "playlist_name": "Favorites"})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
		}
		body := decodeBody[mutation](t, rec)
		if len(body.Playlists) != 1 || body.Playlists[0].Name != "Favorites" {
			t.Errorf("expected default to remain, got %+v", body.Playlists)
		}
	})

	t.Run("wrong method", func(t *testing.T) {
		env := newTestEnv(t, nil)
		rec := httptest.NewRecorder()
		env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/playlists", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})
}

func TestAddTrackRoute(t *testing.T) {
	t.Run("upload appears in listing", func(t *testing.T) {
		env := newTestEnv(t, nil)
		rec := env.upload(t, `{"user_id":1,"file_id":"abc","title":"Song A","artist":"The Band","playlist_name":"Rock"}`, []byte("audio"))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
		}

		body := decodeBody[listing](t, env.postJSON(t, "/playlists", map[string]any{"user_id": 1}))
		if len(body.Playlists) != 2 {
			t.Fatalf("expected default and Rock, got %+v", body.Playlists)
		}
		tracks := body.Playlists[1].Tracks
		if len(tracks) != 1 || tracks[0].Title != "song a" || tracks[0].Artist != "The Band" {
			t.Errorf("unexpected tracks %+v", tracks)
		}
		if _, err := os.Stat(filepath.Join(env.root, "user_1", "track_abc", "song.mp3")); err != nil {
			t.Errorf("expected audio on disk: %v", err)
		}
	})

	t.Run("input errors", func(t *testing.T) {
		env := newTestEnv(t, nil)
		cases := []struct {
			name      string
			trackData string
			audio     []byte
		}{
			{"missing track_data", "", []byte("a")},
			{"missing file", `{"user_id":1,"file_id":"x"}`, nil},
			{"missing file_id", `{"user_id":1}`, []byte("a")},
			{"malformed track_data", `{`, []byte("a")},
			{"unsafe file_id", `{"user_id":1,"file_id":"../x"}`, []byte("a")},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				if rec := env.upload(t, tc.trackData, tc.audio); rec.Code != http.StatusBadRequest {
					t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body)
				}
			})
		}
	})

	t.Run("upload size cap", func(t *testing.T) {
		env := newTestEnv(t, func(c *shared.ServerConfig) { c.MaxUploadMB = 1 })
		rec := env.upload(t, `{"user_id":1,"file_id":"big"}`, bytes.Repeat([]byte("a"), 2<<20))
		if rec.Code != http.StatusRequestEntityTooLarge {
			t.Errorf("expected 413, got %d", rec.Code)
		}
	})
}

func TestMiddleware(t *testing.T) {
	t.Run("request id is generated and echoed", func(t *testing.T) {
		env := newTestEnv(t, nil)
		rec := httptest.NewRecorder()
		env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
			t.Errorf("unexpected healthz response %d %q", rec.Code, rec.Body)
		}
		if rec.Header().Get(RequestIDHeader) == "" {
			t.Error("expected request id header")
		}

		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		rec = httptest.NewRecorder()
		env.handler.ServeHTTP(rec, req)
		if got := rec.Header().Get(RequestIDHeader); got != "abc-123" {
			t.Errorf("expected client request id, got %q", got)
		}
	})

	t.Run("cors preflight", func(t *testing.T) {
		env := newTestEnv(t, nil)
		req := httptest.NewRequest(http.MethodOptions, "/playlists", nil)
		req.Header.Set("Origin", "https://app.example")
		rec := httptest.NewRecorder()
		env.handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Errorf("expected 204, got %d", rec.Code)
		}
		if rec.Header().Get("Access-Control-Allow-Origin") != "https://app.example" {
			t.Errorf("expected allowed origin header, got %q", rec.Header().Get("Access-Control-Allow-Origin"))
		}

		req = httptest.NewRequest(http.MethodOptions, "/playlists", nil)
		req.Header.Set("Origin", "https://evil.example")
		rec = httptest.NewRecorder()
		env.handler.ServeHTTP(rec, req)
		if rec.Header().Get("Access-Control-Allow-Origin") != "" {
			t.Error("unexpected CORS header for unknown origin")
		}
	})

	t.Run("panics become 500", func(t *testing.T) {
		var logs bytes.Buffer
		router := NewBasicRouter()
		router.Use(RequestID(), Recover(shared.NewLogger(&logs)))
		router.Handle(http.MethodGet, "/boom", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		}))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
		if !strings.Contains(logs.String(), "request_id") {
			t.Errorf("expected request id in log, got %q", logs.String())
		}
	})

	t.Run("middleware order", func(t *testing.T) {
		var order []string
		mark := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}
		router := NewBasicRouter()
		router.Use(mark("first"), mark("second"))
		router.Handle(http.MethodGet, "/x", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

		if strings.Join(order, ",") != "first,second" {
			t.Errorf("unexpected order %v", order)
		}
	})
}

func TestStaticRoutes(t *testing.T) {
	env := newTestEnv(t, nil)
	os.WriteFile(filepath.Join(env.static, "index.html"), []byte("<h1>tunebox</h1>"), 0644)
	os.MkdirAll(filepath.Join(env.static, "css"), 0755)
	os.WriteFile(filepath.Join(env.static, "css", "app.css"), []byte("body{}"), 0644)

	cases := []struct {
		path   string
		status int
		body   string
	}{
		{"/", http.StatusOK, "<h1>tunebox</h1>"},
		{"/static/css/app.css", http.StatusOK, "body{}"},
		{"/static/DB/", http.StatusNotFound, ""},
		{"/nope", http.StatusNotFound, ""},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))
		if rec.Code != tc.status {
			t.Errorf("%s: expected %d, got %d", tc.path, tc.status, rec.Code)
		}
		if tc.body != "" && rec.Body.String() != tc.body {
			t.Errorf("%s: unexpected body %q", tc.path, rec.Body)
		}
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: x", shared.ErrInvalidInput), http.StatusBadRequest},
		{fmt.Errorf("%w: x", shared.ErrUnauthorized), http.StatusForbidden},
		{fmt.Errorf("%w: x", shared.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: x", shared.ErrUpstream), http.StatusBadGateway},
		{fmt.Errorf("%w: x", shared.ErrPersistence), http.StatusInternalServerError},
		{errors.New("other"), http.StatusInternalServerError},
		{methodNotAllowed("PUT"), http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		if got := StatusFor(tt.err); got != tt.want {
			t.Errorf("StatusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestParseInitData(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    models.UserID
		wantErr bool
	}{
		{"numeric id", "user=%7B%22id%22%3A42%7D", "42", false},
		{"string id", "a=1&user=%7B%22id%22%3A%22abc%22%7D", "abc", false},
		{"no user", "a=1&b=2", "", true},
		{"bad json", "user=%7B", "", true},
		{"bad escape", "user=%zz", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseInitData(tt.data)
			if (err != nil) != tt.wantErr {
				t.Fatalf("unexpected error state: %v", err)
			}
			if err != nil && !errors.Is(err, shared.ErrUnauthorized) {
				t.Errorf("expected ErrUnauthorized, got %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
