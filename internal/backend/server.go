/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"pagebuilder/internal/domain"
	applog "pagebuilder/internal/log"
	"pagebuilder/internal/storage"
	"pagebuilder/internal/version"
)

// Options configures Handler.
type Options struct {
	// Secret enables bearer-token auth on /api/ routes. Empty disables auth.
	Secret string
	// Validate, when set, rejects PUT bodies it returns an error for.
	Validate func([]byte) error
	Logger   *slog.Logger
}

type keyLister interface {
	Keys(ctx context.Context) ([]string, error)
}

type deleter interface {
	Delete(ctx context.Context, key string) error
}

type pinger interface {
	PingContext(ctx context.Context) error
}

// Handler exposes store over HTTP:
//
//	GET    /healthz
//	GET    /readyz
//	GET    /version
//	GET    /api/layouts            → {"keys": [...]}
//	GET    /api/layouts/{key}      → layout JSON
//	PUT    /api/layouts/{key}      ← layout JSON
//	DELETE /api/layouts/{key}
func Handler(store domain.LayoutStore, opts Options) http.Handler {
	lg := opts.Logger
	if lg == nil {
		lg = applog.WithComponent("backend")
	}
	mux := http.NewServeMux()
	// Health endpoints
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if p, ok := store.(pinger); ok {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := p.PingContext(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("store not ready"))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	mux.HandleFunc("GET /version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(version.String()))
	})

	mux.HandleFunc("GET /api/layouts", withAuth(opts.Secret, func(w http.ResponseWriter, r *http.Request, _ string) {
		kl, ok := store.(keyLister)
		if !ok {
			writeError(w, http.StatusNotImplemented, errors.New("store cannot list layouts"))
			return
		}
		keys, err := kl.Keys(r.Context())
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		if keys == nil {
			keys = []string{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"keys": keys})
	}))

	mux.HandleFunc("GET /api/layouts/{key}", withAuth(opts.Secret, func(w http.ResponseWriter, r *http.Request, _ string) {
		key := r.PathValue("key")
		b, err := store.Load(r.Context(), key)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				lg.Warn("load failed", slog.String("key", key), slog.Any("err", err))
			}
			writeError(w, statusFor(err), err)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(b)
	}))

	mux.HandleFunc("PUT /api/layouts/{key}", withAuth(opts.Secret, func(w http.ResponseWriter, r *http.Request, sub string) {
		key := r.PathValue("key")
		b, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
		_ = r.Body.Close()
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if len(b) > maxBodyBytes {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("layout exceeds %d bytes", maxBodyBytes))
			return
		}
		if !json.Valid(b) {
			writeError(w, http.StatusBadRequest, errors.New("body is not valid JSON"))
			return
		}
		if opts.Validate != nil {
			if err := opts.Validate(b); err != nil {
				writeError(w, http.StatusUnprocessableEntity, err)
				return
			}
		}
		if err := store.Save(r.Context(), key, b); err != nil {
			lg.Warn("save failed", slog.String("key", key), slog.Any("err", err))
			writeError(w, statusFor(err), err)
			return
		}
		lg.Info("layout saved", slog.String("key", key), slog.String("sub", sub), slog.Int("bytes", len(b)))
		w.WriteHeader(http.StatusNoContent)
	}))

	mux.HandleFunc("DELETE /api/layouts/{key}", withAuth(opts.Secret, func(w http.ResponseWriter, r *http.Request, _ string) {
		d, ok := store.(deleter)
		if !ok {
			writeError(w, http.StatusNotImplemented, errors.New("store cannot delete layouts"))
			return
		}
		if err := d.Delete(r.Context(), r.PathValue("key")); err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	return mux
}

// Serve runs Handler on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, store domain.LayoutStore, opts Options) error {
	lg := applog.WithOperation(applog.WithComponent("backend"), "serve")
	srv := &http.Server{
		Addr:              addr,
		Handler:           Handler(store, opts),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	lg.Info("listening", slog.String("addr", addr), slog.Bool("auth", opts.Secret != ""))
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrInvalidKey):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func decodeJSON(r io.Reader, dest any) error {
	dec := json.NewDecoder(io.LimitReader(r, maxBodyBytes))
	dec.UseNumber()
	return dec.Decode(dest)
}
