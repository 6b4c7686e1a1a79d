/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	cli "github.com/urfave/cli/v3"

	"gocomicscript/internal/export"
	"gocomicscript/internal/storage"
)

func runBackupExport(ctx context.Context, cmd *cli.Command) error {
	env := envFromContext(ctx)
	st, err := env.openStore(ctx)
	if err != nil {
		return err
	}
	dest := cmd.Args().Get(0)
	if dest == "-" {
		_, err := storage.ExportBackup(ctx, st, out(cmd))
		return err
	}
	if dest == "" {
		dest = export.BackupFileName(time.Now())
	}
	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("unable to create destination file '%s': %w", dest, err)
	}
	n, err := storage.ExportBackup(ctx, st, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	env.log.Info("backup written", slog.String("file", dest), slog.Int("scripts", n))
	_, err = fmt.Fprintf(out(cmd), "%s: %d scripts\n", dest, n)
	return err
}

func runBackupImport(ctx context.Context, cmd *cli.Command) error {
	env := envFromContext(ctx)
	src := cmd.Args().Get(0)
	if src == "" {
		return errors.New("FILE is required")
	}
	st, err := env.openStore(ctx)
	if err != nil {
		return err
	}
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("unable to open backup: %w", err)
	}
	defer func() { _ = f.Close() }()
	n, err := storage.ImportBackup(ctx, st, f)
	if err != nil {
		return err
	}
	env.log.Info("backup merged", slog.String("file", src), slog.Int("scripts", n))
	_, err = fmt.Fprintf(out(cmd), "%d scripts imported\n", n)
	return err
}

func runSearch(ctx context.Context, cmd *cli.Command) error {
	s, err := envFromContext(ctx).searcher(ctx)
	if err != nil {
		return err
	}
	q := storage.SearchQuery{
		Text:     strings.Join(cmd.Args().Slice(), " "),
		ScriptID: cmd.String("script"),
		Types:    cmd.StringSlice("type"),
		Speaker:  cmd.String("speaker"),
		PageFrom: int(cmd.Int("from")),
		PageTo:   int(cmd.Int("to")),
		Limit:    int(cmd.Int("limit")),
	}
	if strings.TrimSpace(q.Text) == "" && q.Speaker == "" && len(q.Types) == 0 {
		return errors.New("give search TEXT, --speaker or --type")
	}
	res, err := s.Search(ctx, q)
	if err != nil {
		return err
	}
	w := out(cmd)
	for _, r := range res {
		text := r.Snippet
		if text == "" {
			text = r.Text
		}
		fmt.Fprintf(w, "%s  PAGE %d PANEL %d  %-9s %s  (%s @%d)\n", r.Title, r.Logical, r.Panel, r.Type, text, r.ScriptID, r.Pos)
	}
	_, err = fmt.Fprintf(w, "%d results\n", len(res))
	return err
}

func indexedStore(ctx context.Context) (*storage.IndexedStore, error) {
	st, err := envFromContext(ctx).openStore(ctx)
	if err != nil {
		return nil, err
	}
	is, ok := st.(*storage.IndexedStore)
	if !ok {
		return nil, errors.New("history needs the file backend with storage.index enabled")
	}
	return is, nil
}

func runHistory(ctx context.Context, cmd *cli.Command) error {
	id, err := argID(cmd)
	if err != nil {
		return err
	}
	is, err := indexedStore(ctx)
	if err != nil {
		return err
	}
	snaps, err := is.Index.ListSnapshots(ctx, id, int(cmd.Int("limit")))
	if err != nil {
		return err
	}
	w := out(cmd)
	for _, s := range snaps {
		fmt.Fprintf(w, "%6d  %s  %d bytes\n", s.ID, s.TS.Local().Format("2006-01-02 15:04:05"), len(s.Content))
	}
	return nil
}

func runRestore(ctx context.Context, cmd *cli.Command) error {
	id, err := argID(cmd)
	if err != nil {
		return err
	}
	rev, err := strconv.ParseInt(cmd.Args().Get(1), 10, 64)
	if err != nil {
		return fmt.Errorf("bad REVISION %q", cmd.Args().Get(1))
	}
	is, err := indexedStore(ctx)
	if err != nil {
		return err
	}
	if _, err := is.Restore(ctx, id, rev); err != nil {
		return err
	}
	_, err = fmt.Fprintf(out(cmd), "%s: restored revision %d\n", id, rev)
	return err
}
