// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// serveCommand starts the websocket server
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the playback server and accept websocket remotes",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "host",
				Usage: "Override server.host",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Override server.port",
			},
			&cli.StringFlag{
				Name:  "engine",
				Usage: "Override player.engine (mpv or memory)",
			},
			&cli.BoolFlag{
				Name:  "console",
				Usage: "Also run the line-mode console in this terminal",
			},
		},
		Action: r.Serve,
	}
}

// consoleCommand runs the server with the console attached
func consoleCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "console",
		Aliases:   []string{"ui"},
		Usage:     "Run the server with the line-mode console; extra words play the first search result",
		ArgsUsage: "[words...]",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "engine",
				Usage: "Override player.engine (mpv or memory)",
			},
		},
		Action: r.Console,
	}
}

// searchCommand queries the search provider without touching playback
func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search the provider for tracks",
		ArgsUsage: "<query...>",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: text, markdown, csv or json",
				Value:   "text",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write results to a file instead of stdout",
			},
			&cli.BoolFlag{
				Name:  "no-cache",
				Usage: "Skip the search cache",
			},
		},
		Action: r.Search,
	}
}

// remoteCommand sends one protocol command to a running server
func remoteCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "remote",
		Usage:     "Send a command to a running server and print what comes back",
		ArgsUsage: "<command> [key=value...]",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "url",
				Usage: "Websocket URL (defaults to the configured server address)",
			},
			&cli.StringFlag{
				Name:    "data",
				Aliases: []string{"d"},
				Usage:   "Arguments as a JSON object, instead of key=value pairs",
			},
			&cli.DurationFlag{
				Name:  "wait",
				Usage: "How long to wait for replies",
				Value: defaultRemoteWait,
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
			},
		},
		Action: r.Remote,
	}
}

// setupCommand handles setup operations for configuration and the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write the default configuration file",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupConfig,
			},
			{
				Name:  "database",
				Usage: "Initialize the search cache database and run migrations",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the most recent migration instead",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}
