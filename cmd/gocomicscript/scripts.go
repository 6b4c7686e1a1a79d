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
	"io"
	"log/slog"
	"os"
	"strings"

	cli "github.com/urfave/cli/v3"

	"gocomicscript/internal/config"
	"gocomicscript/internal/doc"
	"gocomicscript/internal/domain"
	"gocomicscript/internal/editor"
	"gocomicscript/internal/export"
	"gocomicscript/internal/render"
	"gocomicscript/internal/script"
	"gocomicscript/internal/storage"
)

func metaFromFlags(cmd *cli.Command, base storage.Meta) storage.Meta {
	if cmd.IsSet("title") {
		base.Title = cmd.String("title")
	}
	if cmd.IsSet("series") {
		base.SeriesTitle = cmd.String("series")
	}
	if cmd.IsSet("chapter") {
		base.ChapterNumber = cmd.String("chapter")
	}
	return base
}

func argID(cmd *cli.Command) (string, error) {
	id := strings.TrimSpace(cmd.Args().Get(0))
	if id == "" {
		return "", errors.New("script ID is required")
	}
	return id, nil
}

// openScript loads an existing script; unlike storage.LoadDocument a missing id is an error.
func openScript(ctx context.Context, cmd *cli.Command) (*doc.Node, domain.Script, error) {
	id, err := argID(cmd)
	if err != nil {
		return nil, domain.Script{}, err
	}
	st, err := envFromContext(ctx).openStore(ctx)
	if err != nil {
		return nil, domain.Script{}, err
	}
	sc, err := st.Load(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, domain.Script{}, fmt.Errorf("script %q not found", id)
	}
	if err != nil {
		return nil, domain.Script{}, err
	}
	d, err := doc.Decode(sc.Content)
	if err != nil {
		return nil, sc, fmt.Errorf("script %q: %w", id, err)
	}
	return d, sc, nil
}

func out(cmd *cli.Command) io.Writer { return cmd.Root().Writer }

func runNew(ctx context.Context, cmd *cli.Command) error {
	env := envFromContext(ctx)
	st, err := env.openStore(ctx)
	if err != nil {
		return err
	}
	id, err := storage.NewID()
	if err != nil {
		return err
	}
	sc, err := storage.SaveDocument(ctx, st, id, doc.DefaultDocument(), metaFromFlags(cmd, storage.Meta{}))
	if err != nil {
		return err
	}
	env.log.Info("script created", slog.String("id", sc.ID))
	_, err = fmt.Fprintln(out(cmd), sc.ID)
	return err
}

func runList(ctx context.Context, cmd *cli.Command) error {
	st, err := envFromContext(ctx).openStore(ctx)
	if err != nil {
		return err
	}
	all, err := st.List(ctx)
	if err != nil {
		return err
	}
	w := out(cmd)
	for _, s := range storage.SeriesChapters(all) {
		title := s.Title
		if title == "" {
			title = "(no series)"
		}
		fmt.Fprintln(w, title)
		for _, sc := range s.Scripts {
			ch := string(sc.ChapterNumber)
			if ch != "" {
				ch = "#" + ch + " "
			}
			fmt.Fprintf(w, "  %s%s  %s  %s\n", ch, sc.DisplayTitle(), sc.ID, sc.Modified().Format("2006-01-02 15:04"))
		}
	}
	return nil
}

func runShow(ctx context.Context, cmd *cli.Command) error {
	env := envFromContext(ctx)
	d, sc, err := openScript(ctx, cmd)
	if err != nil {
		return err
	}
	_, capacity, cells, err := env.measurer()
	if err != nil {
		return err
	}
	theme := render.DefaultTheme()
	if cmd.Bool("plain") {
		theme = render.PlainTheme()
	}
	v := render.New(cells, theme)
	if env.cfg.Editor.Measure == config.MeasureCells {
		v.Capacity = capacity
	}
	w := out(cmd)
	fmt.Fprintln(w, sc.DisplayTitle())
	if n := int(cmd.Int("page")); n > 0 {
		if n > d.ChildCount() {
			return fmt.Errorf("script has %d pages", d.ChildCount())
		}
		_, err = fmt.Fprintln(w, v.Page(d, n-1))
		return err
	}
	_, err = fmt.Fprintln(w, v.Document(editor.New(d, editor.Options{}).State()))
	return err
}

func runOutline(ctx context.Context, cmd *cli.Command) error {
	d, sc, err := openScript(ctx, cmd)
	if err != nil {
		return err
	}
	v := render.New(nil, render.PlainTheme())
	_, err = fmt.Fprintf(out(cmd), "%s\n%s\n", sc.DisplayTitle(), v.Outline(d))
	return err
}

// paginate runs d through an editor, replays steps and waits until pagination
// settles. Should anything panic meanwhile, the editor's document is saved as id.
func paginate(ctx context.Context, env *localEnv, d *doc.Node, id string, meta storage.Meta, steps []keyStep) (*doc.Node, int, error) {
	s, err := env.newSession(d, id)
	if err != nil {
		return nil, 0, err
	}
	defer s.close()
	env.crash.ScriptID = id
	env.crash.Autosave = func() error {
		st, err := env.openStore(context.Background())
		if err != nil {
			return err
		}
		_, err = storage.SaveDocument(context.Background(), st, id, s.ed.Doc(), meta)
		return err
	}
	for _, k := range steps {
		if err := s.do(k.apply); err != nil {
			return nil, 0, err
		}
	}
	res, err := s.settle(ctx)
	return res, s.cycles, err
}

func runImport(ctx context.Context, cmd *cli.Command) error {
	env := envFromContext(ctx)
	path := cmd.Args().Get(0)
	if path == "" {
		return errors.New("FILE is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("unable to read script: %w", err)
	}
	text := string(data)
	d, perrs := script.Parse(text)
	for _, pe := range perrs {
		env.log.Warn("import", slog.String("file", path), slog.String("problem", pe.Error()))
	}
	id := cmd.String("id")
	if id == "" {
		if id, err = storage.NewID(); err != nil {
			return err
		}
	}
	meta := metaFromFlags(cmd, storage.Meta(export.ReadMeta(text)))
	d, cycles, err := paginate(ctx, env, d, id, meta, nil)
	if err != nil {
		return err
	}
	st, err := env.openStore(ctx)
	if err != nil {
		return err
	}
	sc, err := storage.SaveDocument(ctx, st, id, d, meta)
	if err != nil {
		return err
	}
	env.log.Info("script imported", slog.String("id", sc.ID), slog.Int("pages", d.ChildCount()), slog.Int("cycles", cycles), slog.Int("problems", len(perrs)))
	_, err = fmt.Fprintln(out(cmd), sc.ID)
	return err
}

func runExportPDF(ctx context.Context, cmd *cli.Command) error {
	d, sc, err := openScript(ctx, cmd)
	if err != nil {
		return err
	}
	opt := export.PDFOptions{Meta: export.Meta(storage.MetaOf(sc)), Theme: export.ThemeStandard, Author: cmd.String("author")}
	if cmd.Bool("dark") {
		opt.Theme = export.ThemeDark
	}
	dest := cmd.String("out")
	if dest == "" {
		dest = export.FileName(opt.Meta, opt.Theme, "pdf")
	}
	if err := export.ExportPDF(d, dest, opt); err != nil {
		return err
	}
	_, err = fmt.Fprintln(out(cmd), dest)
	return err
}

func runExportText(ctx context.Context, cmd *cli.Command) error {
	d, sc, err := openScript(ctx, cmd)
	if err != nil {
		return err
	}
	meta := export.Meta(storage.MetaOf(sc))
	dest := cmd.String("out")
	if dest == "-" {
		return export.WriteText(out(cmd), d, meta)
	}
	if dest == "" {
		dest = export.FileName(meta, export.ThemeStandard, "txt")
	}
	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("unable to create destination file '%s': %w", dest, err)
	}
	if err := export.WriteText(f, d, meta); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	_, err = fmt.Fprintln(out(cmd), dest)
	return err
}

// saveEdited stores d when it differs from the script's content.
func saveEdited(ctx context.Context, env *localEnv, sc domain.Script, before, d *doc.Node) (bool, error) {
	if d.Equal(before) {
		return false, nil
	}
	st, err := env.openStore(ctx)
	if err != nil {
		return false, err
	}
	_, err = storage.SaveDocument(ctx, st, sc.ID, d, storage.MetaOf(sc))
	return err == nil, err
}

func runReflow(ctx context.Context, cmd *cli.Command) error {
	env := envFromContext(ctx)
	d, sc, err := openScript(ctx, cmd)
	if err != nil {
		return err
	}
	after, cycles, err := paginate(ctx, env, d, sc.ID, storage.MetaOf(sc), nil)
	if err != nil {
		return err
	}
	saved, err := saveEdited(ctx, env, sc, d, after)
	if err != nil {
		return err
	}
	state := "unchanged"
	if saved {
		state = "saved"
	}
	_, err = fmt.Fprintf(out(cmd), "%s: %d pages, %d cycles, %s\n", sc.ID, after.ChildCount(), cycles, state)
	return err
}

func runKeys(ctx context.Context, cmd *cli.Command) error {
	env := envFromContext(ctx)
	d, sc, err := openScript(ctx, cmd)
	if err != nil {
		return err
	}
	steps, err := parseKeySteps(cmd.Args().Tail())
	if err != nil {
		return err
	}
	if len(steps) == 0 {
		return errors.New("at least one STEP is required")
	}
	after, _, err := paginate(ctx, env, d, sc.ID, storage.MetaOf(sc), steps)
	if err != nil {
		return err
	}
	saved, err := saveEdited(ctx, env, sc, d, after)
	if err != nil {
		return err
	}
	if !saved {
		_, err = fmt.Fprintf(out(cmd), "%s: unchanged\n", sc.ID)
		return err
	}
	_, err = fmt.Fprintf(out(cmd), "%s: saved, %d pages\n", sc.ID, after.ChildCount())
	return err
}

func runDelete(ctx context.Context, cmd *cli.Command) error {
	id, err := argID(cmd)
	if err != nil {
		return err
	}
	st, err := envFromContext(ctx).openStore(ctx)
	if err != nil {
		return err
	}
	return st.Delete(ctx, id)
}
