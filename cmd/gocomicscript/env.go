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
	"time"

	"go.uber.org/multierr"

	"gocomicscript/internal/backend"
	"gocomicscript/internal/config"
	"gocomicscript/internal/crash"
	applog "gocomicscript/internal/log"
	"gocomicscript/internal/pagination"
	"gocomicscript/internal/storage"
	"gocomicscript/internal/textlayout"
)

type envKey struct{}

// localEnv keeps everything a command needs in a single place.
type localEnv struct {
	cfg      config.AppConfig
	password string
	log      *slog.Logger

	dir     string
	store   storage.Store
	index   *storage.Index
	pg      *backend.Store
	fonts   *textlayout.FontLibrary
	closers []func() error
	start   time.Time
	// crash is filled in as the run opens storage and scripts.
	crash *crash.Session
}

func envFromContext(ctx context.Context) *localEnv {
	if env, ok := ctx.Value(envKey{}).(*localEnv); ok {
		return env
	}
	// this should never happen
	panic("localenv not found in context")
}

func contextWithEnv(ctx context.Context) context.Context {
	return context.WithValue(ctx, envKey{}, &localEnv{cfg: config.Defaults(), log: applog.L(), start: time.Now(), crash: &crash.Session{}})
}

// searcher is implemented by the SQLite index and the PostgreSQL store.
type searcher interface {
	Search(ctx context.Context, q storage.SearchQuery) ([]storage.SearchResult, error)
}

// openStore opens the configured backend once per run.
func (e *localEnv) openStore(ctx context.Context) (storage.Store, error) {
	if e.store != nil {
		return e.store, nil
	}
	switch e.cfg.Storage.Backend {
	case config.BackendPostgres:
		pg, err := backend.Open(ctx, e.cfg.Backend.DSNWithPassword(e.password))
		if err != nil {
			return nil, fmt.Errorf("unable to open postgres store: %w", err)
		}
		pg.Timeout = e.cfg.Backend.EffectiveTimeout()
		e.pg, e.store = pg, pg
		e.closers = append(e.closers, pg.Close)
		e.log.Debug("store opened", slog.String("backend", "postgres"))
		return pg, nil
	default:
		dir, err := e.cfg.Storage.StorageDir()
		if err != nil {
			return nil, err
		}
		fs, err := storage.NewFileStore(dir)
		if err != nil {
			return nil, fmt.Errorf("unable to open storage directory: %w", err)
		}
		fs.KeepBackups = e.cfg.Storage.KeepBackups
		e.dir, e.store = dir, fs
		e.crash.Dir = dir
		if e.cfg.Storage.Index {
			ix, rebuilt, err := storage.DetectAndRebuildIndex(ctx, dir, fs)
			if err != nil {
				e.log.Warn("search index unavailable", slog.Any("err", err))
			} else {
				if rebuilt {
					e.log.Info("search index rebuilt", slog.String("dir", dir))
				}
				e.index = ix
				e.store = &storage.IndexedStore{Store: fs, Index: ix, KeepSnapshots: e.cfg.Storage.SnapshotKeep}
				e.closers = append(e.closers, ix.Close)
			}
		}
		e.log.Debug("store opened", slog.String("backend", "file"), slog.String("dir", dir), slog.Bool("index", e.index != nil))
		return e.store, nil
	}
}

func (e *localEnv) searcher(ctx context.Context) (searcher, error) {
	if _, err := e.openStore(ctx); err != nil {
		return nil, err
	}
	if e.pg != nil {
		return e.pg, nil
	}
	if e.index == nil {
		return nil, errors.New("search needs the index (storage.index) or the postgres backend")
	}
	return e.index, nil
}

// measurer builds the configured page measurer and its capacity. The cell
// measurer is returned as well since the terminal view renders with it.
func (e *localEnv) measurer() (pagination.Measurer, float64, *textlayout.CellMeasurer, error) {
	ec := e.cfg.Editor
	cells := textlayout.NewCellMeasurer(ec.PageWidth)
	if ec.Measure != config.MeasureFont {
		capacity := ec.PageCapacity
		if capacity <= 0 {
			capacity = textlayout.DefaultCellCapacity
		}
		return cells, capacity, cells, nil
	}
	path, err := ec.FontPath()
	if err != nil {
		return nil, 0, nil, err
	}
	var provider textlayout.Provider = textlayout.BasicProvider{}
	if path != "" {
		if e.fonts == nil {
			e.fonts = textlayout.NewFontLibrary()
			e.closers = append(e.closers, e.fonts.Close)
		}
		for _, weight := range []int{400, 700} {
			if err := e.fonts.LoadTTF(textlayout.ScriptFamily, weight, false, path); err != nil {
				return nil, 0, nil, fmt.Errorf("unable to load font: %w", err)
			}
		}
		provider = textlayout.OTProvider{Lib: e.fonts}
	}
	capacity := ec.PageCapacity
	if capacity <= 0 {
		capacity = pagination.DefaultCapacity
	}
	return textlayout.NewFontMeasurer(provider), capacity, cells, nil
}

func (e *localEnv) close() (err error) {
	for i := len(e.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, e.closers[i]())
	}
	e.closers = nil
	return err
}
