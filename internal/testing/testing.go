// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/tunebox/internal/models"
)

// StubBackend is an in-memory playlist backend for conversation tests.
//
// Set the Err fields to make the matching operation fail.
type StubBackend struct {
	mu        sync.Mutex
	playlists map[models.UserID][]models.PlaylistView
	seed      []string
	Uploads   []models.TrackUpload

	PlaylistsErr error
	CreateErr    error
	DeleteErr    error
	AddErr       error
}

// NewStubBackend returns a backend whose users start with a single playlist named defaultName.
func NewStubBackend(defaultName string, extra ...string) *StubBackend {
	b := &StubBackend{playlists: map[models.UserID][]models.PlaylistView{}}
	b.seed = append([]string{defaultName}, extra...)
	return b
}

func (b *StubBackend) ensure(user models.UserID) {
	if _, ok := b.playlists[user]; !ok {
		for _, name := range b.seed {
			b.playlists[user] = append(b.playlists[user], models.PlaylistView{Name: name, Tracks: []models.TrackView{}})
		}
	}
}

func (b *StubBackend) Playlists(ctx context.Context, user models.UserID) ([]models.PlaylistView, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.PlaylistsErr != nil {
		return nil, b.PlaylistsErr
	}
	b.ensure(user)
	return append([]models.PlaylistView(nil), b.playlists[user]...), nil
}

func (b *StubBackend) CreatePlaylist(ctx context.Context, user models.UserID, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.CreateErr != nil {
		return b.CreateErr
	}
	b.ensure(user)
	b.playlists[user] = append(b.playlists[user], models.PlaylistView{Name: name, Tracks: []models.TrackView{}})
	return nil
}

func (b *StubBackend) DeletePlaylist(ctx context.Context, user models.UserID, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.DeleteErr != nil {
		return b.DeleteErr
	}
	b.ensure(user)
	kept := b.playlists[user][:0:0]
	for _, p := range b.playlists[user] {
		if p.Name != name {
			kept = append(kept, p)
		}
	}
	b.playlists[user] = kept
	return nil
}

func (b *StubBackend) AddTrack(ctx context.Context, upload models.TrackUpload) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.AddErr != nil {
		return b.AddErr
	}
	b.Uploads = append(b.Uploads, upload)
	return nil
}

// StubFetcher returns fixed bytes (or Err) for every file id.
type StubFetcher struct {
	Data []byte
	Err  error
}

func (f *StubFetcher) Fetch(ctx context.Context, fileID string) ([]byte, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Data, nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
