// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		serveCommand, botCommand, consoleCommand, setupCommand, playlistsCommand, tracksCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func userFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "user",
		Aliases:  []string{"u"},
		Usage:    "User id owning the playlists",
		Required: true,
	}
}

// serveCommand runs the HTTP API
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the playlist HTTP server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (overrides server.host)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Listen port (overrides server.port)",
			},
		},
		Action: r.Serve,
	}
}

// botCommand runs the Telegram bot
func botCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "bot",
		Usage: "Run the Telegram bot (long polling)",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "remote",
				Usage: "Talk to a running server over HTTP instead of using the local library",
			},
			&cli.StringFlag{
				Name:  "server-url",
				Usage: "Server base URL for --remote (overrides bot.server_url)",
			},
		},
		Action: r.Bot,
	}
}

// consoleCommand returns the interactive chat console
func consoleCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "console",
		Aliases: []string{"tui", "ui"},
		Usage:   "Chat with the bot in the terminal against the local library",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "user",
				Aliases: []string{"u"},
				Usage:   "User id for the console session",
				Value:   "console",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where logs go while the console owns the terminal",
				Value: "./tmp/tunebox-console.log",
			},
		},
		Action: r.Console,
	}
}

// setupCommand handles setup operations for configuration and the session database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "Write a config.toml populated with defaults",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.SetupConfig,
			},
			{
				Name:  "database",
				Usage: "Initialize the session database and run migrations",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the most recent migration instead of migrating up",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}

// playlistsCommand manages a user's playlists directly on disk
func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlists",
		Aliases: []string{"pl"},
		Usage:   "List, create and delete playlists",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List playlists with their tracks",
				Flags: []cli.Flag{
					userFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.PlaylistsList,
			},
			{
				Name:  "create",
				Usage: "Create a playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "name"},
				},
				Flags:  []cli.Flag{userFlag()},
				Action: r.PlaylistsCreate,
			},
			{
				Name:  "delete",
				Usage: "Delete every playlist with the given name",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "name"},
				},
				Flags:  []cli.Flag{userFlag()},
				Action: r.PlaylistsDelete,
			},
			{
				Name:  "export",
				Usage: "Export a playlist as CSV, Markdown or plain text",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "name"},
				},
				Flags: []cli.Flag{
					userFlag(),
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "csv, markdown or text",
						Value:   "text",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output path (file base for csv, directory for markdown)",
					},
				},
				Action: r.PlaylistsExport,
			},
		},
	}
}

// tracksCommand ingests audio files
func tracksCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tracks",
		Usage: "Track operations",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Store an audio file and add it to a playlist",
				Flags: []cli.Flag{
					userFlag(),
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "Path to the audio file",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "file-id",
						Usage: "Source file id (defaults to the file name without extension)",
					},
					&cli.StringFlag{
						Name:  "title",
						Usage: "Track title",
					},
					&cli.StringFlag{
						Name:  "artist",
						Usage: "Track artist",
					},
					&cli.StringFlag{
						Name:    "playlist",
						Aliases: []string{"p"},
						Usage:   "Target playlist (defaults to the default playlist)",
					},
				},
				Action: r.TracksAdd,
			},
		},
	}
}
