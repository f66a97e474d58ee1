// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package metrics

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/qbnc/internal/buildinfo"
	"github.com/autobrr/qbnc/internal/poller"
)

const realm = "qbnc metrics"

type MetricsServer struct {
	manager        *Manager
	server         *http.Server
	basicAuthUsers map[string]string
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// NewMetricsServer serves /metrics and /health on host:port. basicAuthUsers
// is a comma separated list of user:password pairs protecting /metrics.
func NewMetricsServer(manager *Manager, host string, port int, basicAuthUsers string) *MetricsServer {
	s := &MetricsServer{
		manager:        manager,
		basicAuthUsers: parseBasicAuthUsers(basicAuthUsers),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		if len(s.basicAuthUsers) > 0 {
			r.Use(BasicAuth(realm, s.basicAuthUsers))
		}
		r.Handle("/metrics", promhttp.HandlerFor(manager.GetRegistry(), promhttp.HandlerOpts{}))
	})

	s.server = &http.Server{
		Addr:              net.JoinHostPort(host, strconv.Itoa(port)),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

func parseBasicAuthUsers(raw string) map[string]string {
	users := make(map[string]string)
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		user, pass, ok := strings.Cut(entry, ":")
		if !ok || user == "" {
			log.Warn().Msg("Ignoring malformed metrics basic auth entry")
			continue
		}
		users[user] = pass
	}
	return users
}

func (s *MetricsServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	state := s.manager.State()

	status := http.StatusOK
	if state != poller.StateRunning {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(healthResponse{Status: state.String(), Version: buildinfo.Version}); err != nil {
		log.Debug().Err(err).Msg("Failed to write health response")
	}
}

// ListenAndServe blocks until the server stops. A graceful shutdown returns nil.
func (s *MetricsServer) ListenAndServe() error {
	log.Info().Str("addr", s.server.Addr).Msg("Starting metrics server")

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}

func (s *MetricsServer) Stop() error {
	return s.server.Close()
}

func (s *MetricsServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// BasicAuth rejects requests whose credentials do not match users.
func BasicAuth(realm string, users map[string]string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if ok {
				expected, known := users[user]
				if known && subtle.ConstantTimeCompare([]byte(pass), []byte(expected)) == 1 {
					next.ServeHTTP(w, r)
					return
				}
			}

			w.Header().Set("WWW-Authenticate", fmt.Sprintf(`Basic realm="%s", charset="UTF-8"`, realm))
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		})
	}
}
