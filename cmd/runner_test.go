package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/tunebox/internal/models"
	"github.com/desertthunder/tunebox/internal/shared"
	"github.com/desertthunder/tunebox/internal/tasks"
	tu "github.com/desertthunder/tunebox/internal/testing"
)

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			covers := tasks.NewCoverPool(nil, tasks.CoverPoolOpts{}, logger)

			runner := NewRunner(RunnerOpts{
				Config:     config,
				ConfigPath: "/test/path/config.toml",
				Covers:     covers,
				Logger:     logger,
				Output:     output,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.covers != covers {
				t.Error("expected cover pool to be set")
			}
			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
			if runner.library == nil {
				t.Error("expected library to be built")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: nil})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if got := runner.library.Store().DefaultName(); got != "Favorites" {
				t.Errorf("expected default playlist from embedded config, got %q", got)
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: nil})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: nil})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with nil covers builds a pool from config", func(t *testing.T) {
			config := shared.DefaultConfig()
			config.Covers.Workers = 3
			runner := NewRunner(RunnerOpts{Config: config})

			if runner.covers == nil || runner.covers.Workers() != 3 {
				t.Error("expected a cover pool with the configured workers")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, true)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, false)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			expected := `{"key":"value"}` + "\n"
			if result != expected {
				t.Errorf("expected %q, got %q", expected, result)
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			// channels cannot be marshaled to JSON
			data := make(chan int)
			err := runner.writeJSON(data, false)

			if err == nil {
				t.Fatal("expected error for non-serializable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			failing := &tu.FWriter{}
			runner := NewRunner(RunnerOpts{Output: failing})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, false)

			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			data := map[string]string{"key": "value"}
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(data, false)

			if err == nil {
				t.Fatal("expected error writing newline")
			}
			if !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			err := runner.writePlain("hello %s", "world")

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if result != "hello world" {
				t.Errorf("expected 'hello world', got %q", result)
			}
		})

		t.Run("writes plain text without formatting", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			err := runner.writePlain("simple text")

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if result != "simple text" {
				t.Errorf("expected 'simple text', got %q", result)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			failing := &tu.FWriter{}
			runner := NewRunner(RunnerOpts{Output: failing})

			err := runner.writePlain("test")

			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		var names []string
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names = append(names, cmd.Name)
		}
		if got := strings.Join(names, ","); got != "serve,bot,console,setup,playlists,tracks" {
			t.Errorf("unexpected commands %s", got)
		}
	})

	t.Run("sessionStore", func(t *testing.T) {
		t.Run("memory by default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			store, closeFn, err := runner.sessionStore()
			if err != nil || store == nil {
				t.Fatalf("expected memory store, got %v", err)
			}
			closeFn()
		})

		t.Run("sqlite", func(t *testing.T) {
			config := shared.DefaultConfig()
			config.Bot.SessionStore = "sqlite"
			config.Database.Path = filepath.Join(t.TempDir(), "sessions.db")
			runner := NewRunner(RunnerOpts{Config: config, Logger: quietLogger()})

			store, closeFn, err := runner.sessionStore()
			if err != nil {
				t.Fatalf("expected sqlite store, got %v", err)
			}
			defer closeFn()

			s, err := store.Get(context.Background(), "1")
			if err != nil || s.State != models.StateIdle {
				t.Errorf("expected fresh session, got %+v, %v", s, err)
			}
			tu.AssertFileExists(t, config.Database.Path)
		})

		t.Run("unknown", func(t *testing.T) {
			config := shared.DefaultConfig()
			config.Bot.SessionStore = "redis"
			runner := NewRunner(RunnerOpts{Config: config})

			if _, _, err := runner.sessionStore(); !errors.Is(err, shared.ErrInvalidConfig) {
				t.Errorf("expected invalid config, got %v", err)
			}
		})
	})

	t.Run("Bot requires a token", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Logger: quietLogger()})
		err := run(runner, "bot")
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected missing credentials, got %v", err)
		}
	})
}

func quietLogger() *log.Logger {
	return shared.NewLogger(&bytes.Buffer{})
}

func run(r *Runner, args ...string) error {
	app := &cli.Command{Name: "tunebox", Commands: r.register()}
	return app.Run(context.Background(), append([]string{"tunebox"}, args...))
}

func newTestRunner(t *testing.T) (*Runner, *bytes.Buffer, *shared.Config) {
	t.Helper()
	config := shared.DefaultConfig()
	config.Storage.DataDir = filepath.Join(t.TempDir(), "DB")
	logger := quietLogger()
	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Config: config,
		Covers: tasks.NewCoverPool(nil, tasks.CoverPoolOpts{Workers: 1}, logger),
		Logger: logger,
		Output: output,
	})
	return runner, output, config
}

func TestPlaylistCommands(t *testing.T) {
	t.Run("create list delete", func(t *testing.T) {
		runner, output, _ := newTestRunner(t)

		if err := run(runner, "playlists", "create", "--user", "7", "Rock"); err != nil {
			t.Fatalf("create failed: %v", err)
		}
		if !strings.Contains(output.String(), "Favorites, Rock") {
			t.Errorf("unexpected create output %q", output.String())
		}

		output.Reset()
		if err := run(runner, "playlists", "list", "--user", "7", "--json"); err != nil {
			t.Fatalf("list failed: %v", err)
		}
		var body struct {
			Playlists []models.PlaylistView `json:"playlists"`
		}
		if err := json.Unmarshal(output.Bytes(), &body); err != nil {
			t.Fatalf("invalid JSON %q: %v", output.String(), err)
		}
		if len(body.Playlists) != 2 || body.Playlists[1].Name != "Rock" {
			t.Errorf("unexpected playlists %+v", body.Playlists)
		}

		output.Reset()
		if err := run(runner, "playlists", "delete", "--user", "7", "Rock"); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		if !strings.Contains(output.String(), "Playlists: Favorites\n") {
			t.Errorf("unexpected delete output %q", output.String())
		}
	})

	t.Run("delete for unknown user", func(t *testing.T) {
		runner, _, _ := newTestRunner(t)
		err := run(runner, "playlists", "delete", "--user", "8", "Rock")
		if !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected not found, got %v", err)
		}
	})

	t.Run("invalid arguments", func(t *testing.T) {
		runner, _, _ := newTestRunner(t)
		if err := run(runner, "playlists", "create", "--user", "../x", "Rock"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected invalid argument, got %v", err)
		}
		if err := run(runner, "playlists", "create", "--user", "7"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected missing argument, got %v", err)
		}
	})

	t.Run("export", func(t *testing.T) {
		runner, output, _ := newTestRunner(t)
		if err := run(runner, "playlists", "create", "--user", "7", "Road Trip"); err != nil {
			t.Fatal(err)
		}

		dest := filepath.Join(t.TempDir(), "trip.txt")
		if err := run(runner, "playlists", "export", "--user", "7", "--output", dest, "Road Trip"); err != nil {
			t.Fatalf("export failed: %v", err)
		}
		if !strings.Contains(tu.MustReadFile(t, dest), "Playlist: Road Trip") {
			t.Error("unexpected export contents")
		}
		if !strings.Contains(output.String(), dest) {
			t.Errorf("unexpected output %q", output.String())
		}

		err := run(runner, "playlists", "export", "--user", "7", "Missing")
		if !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected not found, got %v", err)
		}
		err = run(runner, "playlists", "export", "--user", "7", "--format", "pdf", "Road Trip")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected invalid argument, got %v", err)
		}
	})

	t.Run("plain listing", func(t *testing.T) {
		runner, output, _ := newTestRunner(t)
		if err := run(runner, "playlists", "list", "--user", "7"); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(output.String(), "Favorites (0 tracks)") {
			t.Errorf("unexpected listing %q", output.String())
		}
	})
}

func TestTracksAdd(t *testing.T) {
	runner, output, config := newTestRunner(t)
	path := filepath.Join(t.TempDir(), "my song.mp3")
	if err := os.WriteFile(path, []byte("not really mp3"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := run(runner, "tracks", "add", "--user", "7", "--file", path, "--title", "Song A", "--artist", "The Band", "--playlist", "Rock")
	if err != nil {
		t.Fatalf("tracks add failed: %v", err)
	}
	if !strings.Contains(output.String(), "track_my_song") {
		t.Errorf("unexpected output %q", output.String())
	}

	dir := filepath.Join(config.Storage.DataDir, "user_7", "track_my_song")
	tu.AssertFileExists(t, filepath.Join(dir, "song.mp3"))
	tu.AssertFileExists(t, filepath.Join(dir, "data.txt"))
	tu.AssertFileExists(t, filepath.Join(dir, "cover.jpeg"))

	views, err := runner.library.Playlists(context.Background(), "7")
	if err != nil {
		t.Fatal(err)
	}
	if len(views) != 2 || views[1].Name != "Rock" || len(views[1].Tracks) != 1 {
		t.Fatalf("unexpected playlists %+v", views)
	}
	if tr := views[1].Tracks[0]; tr.Title != "song a" || tr.Artist != "The Band" {
		t.Errorf("unexpected track %+v", tr)
	}
}

func TestFileIDFromPath(t *testing.T) {
	tests := []struct{ path, want string }{
		{"/music/song.mp3", "song"},
		{"my song (live).mp3", "my_song__live_"},
		{"Ünïcode.ogg", "_n_code"},
	}
	for _, tt := range tests {
		if got := fileIDFromPath(tt.path); got != tt.want {
			t.Errorf("fileIDFromPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
		if !models.ValidID(fileIDFromPath(tt.path)) {
			t.Errorf("fileIDFromPath(%q) is not a valid id", tt.path)
		}
	}
}

func TestSetupCommands(t *testing.T) {
	t.Run("config", func(t *testing.T) {
		runner, _, _ := newTestRunner(t)
		path := filepath.Join(t.TempDir(), "config.toml")

		if err := run(runner, "setup", "config", "--config", path); err != nil {
			t.Fatalf("setup config failed: %v", err)
		}
		if !strings.Contains(tu.MustReadFile(t, path), "default_playlist") {
			t.Error("expected example config contents")
		}
		if err := run(runner, "setup", "config", "--config", path); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected existing file to be rejected, got %v", err)
		}
	})

	t.Run("database", func(t *testing.T) {
		runner, _, _ := newTestRunner(t)
		dir := t.TempDir()
		dbPath := filepath.Join(dir, "sessions.db")
		configPath := filepath.Join(dir, "config.toml")
		conf := "[database]\npath = " + strconv.Quote(dbPath) + "\n"
		if err := os.WriteFile(configPath, []byte(conf), 0o644); err != nil {
			t.Fatal(err)
		}

		if err := run(runner, "setup", "database", "--config", configPath); err != nil {
			t.Fatalf("setup database failed: %v", err)
		}
		tu.AssertFileExists(t, dbPath)

		if err := run(runner, "setup", "database", "--config", configPath, "--rollback"); err != nil {
			t.Errorf("rollback failed: %v", err)
		}
	})
}
