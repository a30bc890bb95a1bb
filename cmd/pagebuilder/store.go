/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"pagebuilder/internal/backend"
	"pagebuilder/internal/config"
	"pagebuilder/internal/domain"
	"pagebuilder/internal/storage"
)

// layoutStore is what the CLI needs from any backend.
type layoutStore interface {
	domain.LayoutStore
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}

type noClose struct{ layoutStore }

func (noClose) Close() error { return nil }

type closingStore interface {
	layoutStore
	Close() error
}

// openStore builds the layout store selected by cfg.Storage.Driver.
func openStore(ctx context.Context, cfg config.AppConfig, token string) (closingStore, error) {
	switch strings.ToLower(cfg.Storage.Driver) {
	case "", "sqlite":
		path := cfg.Storage.Path
		if path == "" {
			dir, err := config.DataDir()
			if err != nil {
				return nil, err
			}
			path = filepath.Join(dir, "layouts.db")
		}
		st, err := storage.Open(path)
		if err != nil {
			return nil, err
		}
		return st, nil
	case "file":
		dir := cfg.Storage.Path
		if dir == "" {
			d, err := config.DataDir()
			if err != nil {
				return nil, err
			}
			dir = filepath.Join(d, "layouts")
		}
		fs, err := storage.NewFileStore(dir)
		if err != nil {
			return nil, err
		}
		return noClose{fs}, nil
	case "http":
		return noClose{backend.NewClient(cfg.Backend.BaseURL, token, cfg.Backend.Timeout())}, nil
	case "postgres":
		if cfg.Storage.DSN == "" {
			return nil, errors.New("storage.dsn is required for the postgres driver")
		}
		pg, err := backend.OpenPG(ctx, cfg.Storage.DSN)
		if err != nil {
			return nil, err
		}
		return pg, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// resolve maps a CLI argument to a store and key. An existing *.json path is
// served from its directory; anything else is a key in the configured store.
func resolve(ctx context.Context, cfg config.AppConfig, token, arg string) (closingStore, string, error) {
	if filepath.Ext(arg) == storage.LayoutExt {
		if st, err := os.Stat(arg); err == nil && !st.IsDir() {
			fs, err := storage.NewFileStore(filepath.Dir(arg))
			if err != nil {
				return nil, "", err
			}
			return noClose{fs}, strings.TrimSuffix(filepath.Base(arg), filepath.Ext(arg)), nil
		}
	}
	if err := storage.CheckKey(arg); err != nil {
		return nil, "", err
	}
	st, err := openStore(ctx, cfg, token)
	if err != nil {
		return nil, "", err
	}
	return st, arg, nil
}
