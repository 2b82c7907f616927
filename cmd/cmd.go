// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand creates the configuration file and the database
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize configuration and database",
		Commands: []*cli.Command{
			{
				Name:  "database",
				Usage: "Create the media database and run migrations",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.SetupDatabase,
			},
			{
				Name:  "config",
				Usage: "Write a config.toml with default values",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Path of the configuration file to create",
						Value:   "config.toml",
					},
				},
				Action: r.SetupConfig,
			},
		},
	}
}

// scanCommand indexes audio files into the media store
func scanCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "scan",
		Usage: "Index audio files under the configured roots",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "root",
				Usage: "Folder to scan (repeatable, replaces scanner.roots)",
			},
			&cli.BoolFlag{
				Name:  "prune",
				Usage: "Remove tracks whose files no longer exist",
			},
			&cli.BoolFlag{
				Name:  "tui",
				Usage: "Follow progress in an interactive view",
			},
		},
		Action: r.Scan,
	}
}

// callCommand sends one method call to the plugin
func callCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "call",
		Usage: "Invoke a plugin method and print its reply",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "method",
				Aliases:  []string{"m"},
				Usage:    "Method name, e.g. getSongs",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "source",
				Aliases: []string{"s"},
				Usage:   "Source: artist, album, song, genre, playlist or artwork",
			},
			&cli.StringSliceFlag{
				Name:    "arg",
				Aliases: []string{"a"},
				Usage:   "Argument as key=value (repeatable); *_ids and memberIds take comma separated lists",
			},
			&cli.StringFlag{
				Name:  "args",
				Usage: "Arguments as a JSON object, merged before --arg values",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: json, csv, markdown or text",
				Value:   "json",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write artwork replies to this PNG file",
			},
			&cli.BoolFlag{
				Name:  "remote",
				Usage: "Send the call to the running server instead of an in-process plugin",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print JSON output",
				Value: true,
			},
		},
		Action: r.Call,
	}
}

// serveCommand exposes the plugin over HTTP
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the plugin over HTTP",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to listen on (overrides server.port)",
			},
			&cli.DurationFlag{
				Name:  "call-timeout",
				Usage: "How long a call may wait for its reply",
			},
		},
		Action: r.Serve,
	}
}

// permissionCommand answers permission requests held by a running server
func permissionCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "permission",
		Usage: "Inspect and answer pending permission requests",
		Commands: []*cli.Command{
			{
				Name:   "pending",
				Usage:  "List requests waiting for an answer",
				Flags:  []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"}},
				Action: r.PermissionPending,
			},
			{
				Name:  "resolve",
				Usage: "Grant or deny a pending request",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:     "code",
						Usage:    "Request code (1 = read, 2 = write)",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "deny",
						Usage: "Deny instead of granting",
					},
				},
				Action: r.PermissionResolve,
			},
			{
				Name:   "watch",
				Usage:  "Answer requests interactively as they arrive",
				Action: r.PermissionWatch,
			},
		},
	}
}

// apiCommand handles raw requests against the running server
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Raw requests to the audioquery server",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "GET a path, prints raw JSON",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
						Value: true,
					},
				},
				Action: r.APIGet,
			},
			{
				Name:  "post",
				Usage: "POST JSON to a path, prints raw JSON",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "data",
						Usage:    "JSON request body",
						Required: true,
					},
				},
				Action: r.APIPost,
			},
		},
	}
}
