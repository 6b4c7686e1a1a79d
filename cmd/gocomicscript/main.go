/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Command gocomicscript writes, paginates and exports comic scripts from the terminal.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	cli "github.com/urfave/cli/v3"

	"gocomicscript/internal/config"
	"gocomicscript/internal/crash"
	applog "gocomicscript/internal/log"
	"gocomicscript/internal/version"
)

const appName = "gocomicscript"

// initializeAppContext loads the configuration and sets up logging after the
// command line has been parsed.
func initializeAppContext(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	env := envFromContext(ctx)

	var err error
	if path := cmd.String("config"); path != "" {
		env.cfg, env.password, err = config.LoadFrom(path)
	} else {
		env.cfg, env.password, err = config.Load()
	}
	if err != nil {
		return ctx, fmt.Errorf("unable to prepare configuration: %w", err)
	}
	lc := env.cfg.Logging
	if cmd.Bool("debug") {
		lc.Level = "debug"
	}
	applog.Init(applog.Options{Level: lc.Level, Format: lc.Format, AddSource: lc.Source, File: lc.File, Writer: cmd.Root().ErrWriter})
	env.log = applog.WithComponent("cli")
	env.log.Debug("program started", slog.Any("args", os.Args), slog.String("ver", version.String()), slog.String("runtime", runtime.Version()))
	return ctx, nil
}

func destroyAppContext(ctx context.Context, _ *cli.Command) error {
	env := envFromContext(ctx)
	err := env.close()
	env.log.Debug("program ended", slog.Duration("elapsed", time.Since(env.start)))
	return err
}

var errWasHandled bool

func exitErrHandler(ctx context.Context, _ *cli.Command, err error) {
	envFromContext(ctx).log.Error("program ended with error", slog.Any("err", err))
	errWasHandled = true
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:            appName,
		Usage:           "comic script editor: write, paginate, search and export scripts",
		Version:         version.String() + " (" + runtime.Version() + ")",
		HideHelpCommand: true,
		Before:          initializeAppContext,
		After:           destroyAppContext,
		ExitErrHandler:  exitErrHandler,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "load configuration from `FILE` (YAML)"},
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "log at debug level"},
		},
		Commands: []*cli.Command{
			{
				Name:   "new",
				Usage:  "Creates an empty script and prints its id",
				Flags:  metaFlags(),
				Action: runNew,
			},
			{
				Name:   "list",
				Usage:  "Lists scripts grouped by series and chapter",
				Action: runList,
			},
			{
				Name:      "show",
				Usage:     "Renders a script page by page",
				ArgsUsage: "ID",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "plain", Usage: "render without colours"},
					&cli.IntFlag{Name: "page", Usage: "render only physical page `N` (1-based)"},
				},
				Action: runShow,
			},
			{
				Name:      "outline",
				Usage:     "Prints logical pages and their panels",
				ArgsUsage: "ID",
				Action:    runOutline,
			},
			{
				Name:      "import",
				Usage:     "Imports a plain-text script, paginates it and saves it",
				ArgsUsage: "FILE",
				Flags:     append(metaFlags(), &cli.StringFlag{Name: "id", Usage: "replace the script `ID` instead of creating one"}),
				Action:    runImport,
			},
			{
				Name:  "export",
				Usage: "Exports a script",
				Commands: []*cli.Command{
					{
						Name:      "pdf",
						Usage:     "Writes an A4 PDF",
						ArgsUsage: "ID",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "destination `FILE`, derived from the metadata if absent"},
							&cli.BoolFlag{Name: "dark", Usage: "use the dark theme"},
							&cli.StringFlag{Name: "author", Usage: "author `NAME` for the PDF properties"},
						},
						Action: runExportPDF,
					},
					{
						Name:      "txt",
						Usage:     "Writes the plain-text script syntax",
						ArgsUsage: "ID",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "destination `FILE`, - for STDOUT"},
						},
						Action: runExportText,
					},
				},
			},
			{
				Name:      "reflow",
				Usage:     "Runs pagination over a script until it settles and saves the result",
				ArgsUsage: "ID",
				Action:    runReflow,
			},
			{
				Name:      "keys",
				Usage:     "Replays editor input on a script and saves the result",
				ArgsUsage: "ID STEP...",
				Description: `STEP is one of:
   KEY              a key such as Enter, Tab, Backspace, Mod-Enter, Mod-Shift-Enter, Mod-Shift-s, Mod-Space, Mod-z
   text:TEXT        insert TEXT at the cursor
   complete[:NAME]  complete the character cue with NAME or the first known match
   paste:TEXT       paste TEXT, \n separates paragraphs
   @N | @end        move the cursor to position N or to the end of the script`,
				Action: runKeys,
			},
			{
				Name:      "delete",
				Usage:     "Deletes a script with its backups and history",
				ArgsUsage: "ID",
				Action:    runDelete,
			},
			{
				Name:  "backup",
				Usage: "Writes or merges a backup archive of all scripts",
				Commands: []*cli.Command{
					{
						Name:      "export",
						Usage:     "Writes every script to a JSON archive",
						ArgsUsage: "[FILE]",
						Action:    runBackupExport,
					},
					{
						Name:      "import",
						Usage:     "Merges the scripts of a JSON archive",
						ArgsUsage: "FILE",
						Action:    runBackupImport,
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Searches script blocks",
				ArgsUsage: "[TEXT]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "script", Usage: "only the script `ID`"},
					&cli.StringSliceFlag{Name: "type", Usage: "only blocks of `TYPE` (panel, character, dialogue, sfx, paragraph)"},
					&cli.StringFlag{Name: "speaker", Usage: "only lines of character `NAME`"},
					&cli.IntFlag{Name: "from", Usage: "from logical page `N`"},
					&cli.IntFlag{Name: "to", Usage: "up to logical page `N`"},
					&cli.IntFlag{Name: "limit", Value: 50, Usage: "at most `N` results"},
				},
				Action: runSearch,
			},
			{
				Name:      "history",
				Usage:     "Lists saved revisions of a script",
				ArgsUsage: "ID",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Value: 20, Usage: "at most `N` revisions"},
				},
				Action: runHistory,
				Commands: []*cli.Command{
					{
						Name:      "restore",
						Usage:     "Makes a saved revision the current content",
						ArgsUsage: "ID REVISION",
						Action:    runRestore,
					},
				},
			},
			{
				Name:  "version",
				Usage: "Shows the version",
				Action: func(_ context.Context, cmd *cli.Command) error {
					_, err := fmt.Fprintf(cmd.Root().Writer, "Go Comic Script %s\n", version.String())
					return err
				},
			},
		},
	}
}

func metaFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "title", Usage: "script `TITLE`"},
		&cli.StringFlag{Name: "series", Usage: "series `TITLE`"},
		&cli.StringFlag{Name: "chapter", Usage: "chapter `NUMBER`"},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(contextWithEnv(context.Background()), os.Interrupt, syscall.SIGTERM)
	app := newApp()
	app.Writer, app.ErrWriter = os.Stdout, os.Stderr

	var err error
	// NOTE: os.Exit is called at the end of main to set exit code, make sure
	// there are no other deferred functions after that
	defer func() {
		stop()
		if err != nil {
			if !errWasHandled {
				fmt.Fprintf(os.Stderr, "Program ended with error: %v\n", err)
			}
			os.Exit(1)
		}
	}()
	defer crash.Recover(envFromContext(ctx).crash)
	err = app.Run(ctx, os.Args)
}
