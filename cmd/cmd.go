// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand handles setup operations for configuration and the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write the example configuration to --config",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:   "check",
				Usage:  "Validate the configuration",
				Action: r.SetupCheck,
			},
		},
	}
}

// authCommand handles sign in and sign out with the identity provider.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage authentication",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Sign in through the browser",
				Action: r.AuthLogin,
			},
			{
				Name:   "logout",
				Usage:  "Sign out and forget the stored token",
				Action: r.AuthLogout,
			},
			{
				Name:  "status",
				Usage: "Show the signed-in account and plan",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.AuthStatus,
			},
		},
	}
}

func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "export",
			Aliases: []string{"e"},
			Usage:   "Export the score after transcribing (pdf, csv, md or txt)",
		},
		&cli.BoolFlag{
			Name:  "no-save",
			Usage: "Do not keep the result in the local history",
		},
	}
}

// transcribeCommand handles uploads to the transcription service.
func transcribeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "transcribe",
		Aliases: []string{"tx"},
		Usage:   "Transcribe audio into violin sheet music",
		Commands: []*cli.Command{
			{
				Name:  "file",
				Usage: "Transcribe a local audio file",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "path"},
				},
				Flags: append([]cli.Flag{
					&cli.BoolFlag{
						Name:  "accept-terms",
						Usage: "Agree to the terms of service (see 'scribe terms')",
					},
				}, outputFlags()...),
				Action: r.TranscribeFile,
			},
			{
				Name:    "youtube",
				Aliases: []string{"yt"},
				Usage:   "Transcribe the audio of a YouTube video (Pro)",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "url"},
				},
				Flags:  outputFlags(),
				Action: r.TranscribeYouTube,
			},
			{
				Name:      "batch",
				Usage:     "Transcribe several local audio files",
				ArgsUsage: "<path> [path...]",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "accept-terms",
						Usage: "Agree to the terms of service (see 'scribe terms')",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent uploads (max 4)",
						Value: 2,
					},
					&cli.FloatFlag{
						Name:  "rate",
						Usage: "Uploads started per second",
						Value: 1,
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format for each score (pdf, csv, md or txt)",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Export directory (default: scribe_batch_{timestamp})",
					},
				},
				Action: r.TranscribeBatch,
			},
		},
	}
}

func numberArg() []cli.Argument {
	return []cli.Argument{&cli.StringArg{Name: "number"}}
}

// historyCommand handles the local transcription history.
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Browse past transcriptions",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List saved transcriptions, newest first",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of entries",
						Value: 20,
					},
					&cli.StringFlag{
						Name:  "source",
						Usage: "Only show file or youtube transcriptions",
					},
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Include entries from other accounts",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.HistoryList,
			},
			{
				Name:      "show",
				Usage:     "Render a saved score",
				Arguments: numberArg(),
				Action:    r.HistoryShow,
			},
			{
				Name:      "play",
				Usage:     "Play a saved transcription's note events",
				Arguments: numberArg(),
				Action:    r.HistoryPlay,
			},
			{
				Name:      "export",
				Usage:     "Export a saved score",
				Arguments: numberArg(),
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "pdf, csv, md or txt",
						Value:   "pdf",
					},
				},
				Action: r.HistoryExport,
			},
			{
				Name:      "delete",
				Usage:     "Remove a transcription from the history",
				Arguments: numberArg(),
				Action:    r.HistoryDelete,
			},
		},
	}
}

// plansCommand shows the subscriptions page.
func plansCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "plans",
		Aliases: []string{"subscriptions"},
		Usage:   "Compare the Free and Pro plans",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "success",
				Usage: "Checkout result returned by the payment provider (true or false)",
			},
		},
		Action: r.Plans,
	}
}

func subscribeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "subscribe",
		Usage:  "Start a Pro checkout in the browser",
		Action: r.Subscribe,
	}
}

func portalCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "portal",
		Usage:  "Manage your subscription in the billing portal",
		Action: r.Portal,
	}
}

func aboutCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "about",
		Usage:  "About String Scribe",
		Action: r.About,
	}
}

func termsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "terms",
		Usage:  "Show the terms of service",
		Action: r.Terms,
	}
}

// tuiCommand returns the top-level TUI command.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive terminal UI",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "page",
				Usage: "Page to open (home, about, terms, subscriptions, history)",
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "Export format used by the export key",
				Value: "pdf",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where to write logs while the UI owns the terminal",
				Value: "./tmp/scribe-tui.log",
			},
		},
		Action: r.TUI,
	}
}
