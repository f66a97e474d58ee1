// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package poller drives the bridge: it keeps a qBittorrent session alive,
// finds completed torrents that lack the done tag, tags them and asks
// Nextcloud to rescan.
package poller

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/qbnc/internal/domain"
	"github.com/autobrr/qbnc/internal/nextcloud"
	"github.com/autobrr/qbnc/internal/qbittorrent"
)

// State is the controller lifecycle stage.
type State int32

const (
	StateStarting State = iota
	StateRunning
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Stage names the per-item step an outcome belongs to.
type Stage string

const (
	StageMark   Stage = "mark"
	StageRescan Stage = "rescan"
)

type SessionSource interface {
	Acquire(ctx context.Context) (*qbittorrent.Session, error)
	Verify(ctx context.Context, session *qbittorrent.Session) (string, error)
}

type Detector interface {
	ListCompleted(ctx context.Context, session *qbittorrent.Session) ([]domain.TorrentRecord, error)
}

type Marker interface {
	MarkDone(ctx context.Context, session *qbittorrent.Session, hash string) error
}

type Indexer interface {
	Rescan(ctx context.Context, req nextcloud.RescanRequest) error
}

// Recorder observes controller activity, typically for metrics.
type Recorder interface {
	StateChanged(state State)
	SessionRenewed(err error)
	PollFinished(found int, elapsed time.Duration, err error)
	ItemProcessed(stage Stage, err error)
}

// Reporter receives steady-state failures for external error tracking.
type Reporter interface {
	Capture(err error, tags map[string]string)
}

// CycleResult summarises one poll. Dropped counts records left unvisited
// because shutdown was requested mid-cycle.
type CycleResult struct {
	ID        string
	Found     int
	Processed int
	Failed    int
	Dropped   int
	Skipped   bool
}

// Controller owns the session and runs poll cycles one at a time.
type Controller struct {
	cfg      *domain.Config
	sessions SessionSource
	detector Detector
	marker   Marker
	indexer  Indexer
	recorder Recorder
	reporter Reporter

	state    atomic.Int32
	session  *qbittorrent.Session
	lastPoll time.Time
	now      func() time.Time
	newID    func() string
}

func NewController(cfg *domain.Config, sessions SessionSource, detector Detector, marker Marker, indexer Indexer) *Controller {
	c := &Controller{
		cfg:      cfg,
		sessions: sessions,
		detector: detector,
		marker:   marker,
		indexer:  indexer,
		recorder: noopRecorder{},
		reporter: noopReporter{},
		now:      time.Now,
		newID:    uuid.NewString,
	}
	c.state.Store(int32(StateStarting))
	return c
}

func (c *Controller) SetRecorder(r Recorder) {
	if r == nil {
		r = noopRecorder{}
	}
	c.recorder = r
}

func (c *Controller) SetReporter(r Reporter) {
	if r == nil {
		r = noopReporter{}
	}
	c.reporter = r
}

// State is safe to call from any goroutine.
func (c *Controller) State() State {
	return State(c.state.Load())
}

func (c *Controller) setState(state State) {
	previous := State(c.state.Swap(int32(state)))
	if previous == state {
		return
	}
	c.recorder.StateChanged(state)
	log.Debug().Stringer("from", previous).Stringer("to", state).Msg("Poll controller state changed")
}

// Run starts the controller and polls until ctx is cancelled. Startup
// failures are returned; cancellation returns nil.
func (c *Controller) Run(ctx context.Context) error {
	if err := c.start(ctx); err != nil {
		c.setState(StateStopped)
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	c.setState(StateRunning)
	log.Info().
		Dur("pollInterval", c.cfg.PollInterval).
		Dur("sessionMaxAge", c.cfg.SessionMaxAge).
		Str("doneTag", c.cfg.DoneTag).
		Msg("Poll controller running")

	ticker := time.NewTicker(c.cfg.WakeInterval)
	defer ticker.Stop()

	c.pollIfDue(ctx)

	for {
		if ctx.Err() != nil {
			c.stop()
			return nil
		}

		select {
		case <-ctx.Done():
			c.stop()
			return nil
		case <-ticker.C:
			c.pollIfDue(ctx)
		}
	}
}

// RunOnce starts the controller, performs a single poll and stops.
func (c *Controller) RunOnce(ctx context.Context) (CycleResult, error) {
	if err := c.start(ctx); err != nil {
		c.setState(StateStopped)
		return CycleResult{}, err
	}

	c.setState(StateRunning)
	result, err := c.poll(ctx)
	c.stop()

	return result, err
}

func (c *Controller) start(ctx context.Context) error {
	c.setState(StateStarting)

	session, err := c.sessions.Acquire(ctx)
	c.recorder.SessionRenewed(err)
	if err != nil {
		return errors.Wrap(err, "initial login")
	}

	version, err := c.sessions.Verify(ctx, session)
	if err != nil {
		return errors.Wrap(err, "connectivity check")
	}

	c.session = session
	log.Info().Str("webAPIVersion", version).Msg("Connected to qBittorrent")

	return nil
}

func (c *Controller) stop() {
	c.setState(StateStopped)
	log.Info().Msg("Poll controller stopped")
}

func (c *Controller) pollIfDue(ctx context.Context) {
	if !c.lastPoll.IsZero() && c.now().Sub(c.lastPoll) < c.cfg.PollInterval {
		return
	}
	_, _ = c.poll(ctx)
}

// poll runs one cycle. Failures are contained here: a renewal or query
// failure skips the cycle, an item failure skips that item.
func (c *Controller) poll(ctx context.Context) (CycleResult, error) {
	started := c.now()
	c.lastPoll = started

	result := CycleResult{ID: c.newID()}
	logger := log.With().Str("cycle", result.ID).Logger()

	if err := c.renewIfStale(ctx); err != nil {
		result.Skipped = true
		c.recorder.PollFinished(0, c.now().Sub(started), err)
		if ctx.Err() != nil {
			logger.Debug().Err(err).Msg("Session renewal interrupted by shutdown")
			return result, err
		}
		logger.Warn().Err(err).Str("kind", domain.KindOf(err)).Msg("Session renewal failed, skipping poll")
		c.reporter.Capture(err, map[string]string{"op": "renew", "kind": domain.KindOf(err)})
		return result, err
	}

	records, err := c.detector.ListCompleted(ctx, c.session)
	if err != nil {
		result.Skipped = true
		c.recorder.PollFinished(0, c.now().Sub(started), err)
		if ctx.Err() != nil {
			logger.Debug().Err(err).Msg("Poll interrupted by shutdown")
			return result, err
		}
		logger.Error().Err(err).Str("kind", domain.KindOf(err)).Msg("Poll failed")
		c.reporter.Capture(err, map[string]string{"op": "query", "kind": domain.KindOf(err)})
		return result, err
	}

	result.Found = len(records)
	seen := make(map[string]struct{}, len(records))

	for i, record := range records {
		if ctx.Err() != nil {
			result.Dropped = len(records) - i
			c.setState(StateDraining)
			logger.Info().Int("remaining", result.Dropped).Msg("Shutdown requested, skipping remaining items")
			break
		}

		// Detector output is re-checked against the done tag.
		if !record.NeedsProcessing(c.cfg.DoneTag) {
			continue
		}
		if _, dup := seen[record.Hash]; dup {
			continue
		}
		seen[record.Hash] = struct{}{}

		if err := c.processItem(ctx, record); err != nil {
			result.Failed++
			logger.Error().
				Err(err).
				Str("hash", record.Hash).
				Str("name", record.Name).
				Str("kind", domain.KindOf(err)).
				Msg("Failed to process torrent")
			c.reporter.Capture(err, map[string]string{"hash": record.Hash, "kind": domain.KindOf(err)})
			continue
		}
		result.Processed++
	}

	c.recorder.PollFinished(result.Found, c.now().Sub(started), nil)
	logger.Debug().
		Int("found", result.Found).
		Int("processed", result.Processed).
		Int("failed", result.Failed).
		Msg("Poll finished")

	return result, nil
}

func (c *Controller) renewIfStale(ctx context.Context) error {
	if !c.session.IsStale(c.now(), c.cfg.SessionMaxAge) {
		return nil
	}

	session, err := c.sessions.Acquire(ctx)
	c.recorder.SessionRenewed(err)
	if err != nil {
		return err
	}

	c.session = session
	log.Debug().Time("issuedAt", session.IssuedAt).Msg("Renewed qBittorrent session")

	return nil
}

// processItem marks then rescans. An item already in flight is finished even
// if shutdown is requested meanwhile; every call still carries its own timeout.
func (c *Controller) processItem(ctx context.Context, record domain.TorrentRecord) error {
	itemCtx := context.WithoutCancel(ctx)

	err := c.marker.MarkDone(itemCtx, c.session, record.Hash)
	c.recorder.ItemProcessed(StageMark, err)
	if err != nil {
		return err
	}

	err = c.indexer.Rescan(itemCtx, c.requestFor(record))
	c.recorder.ItemProcessed(StageRescan, err)

	return err
}

// requestFor builds the rescan request for record. Names are appended
// verbatim so the trigger's traversal check sees them unmodified.
func (c *Controller) requestFor(record domain.TorrentRecord) nextcloud.RescanRequest {
	rel := c.cfg.IndexRelPath
	if c.cfg.IndexScanScope == domain.ScanScopeItem && record.Name != "" {
		rel = strings.TrimRight(rel, "/") + "/" + record.Name
	}

	return nextcloud.RescanRequest{
		Target: c.cfg.IndexExecTargetName,
		Path:   rel,
		Hash:   record.Hash,
	}
}

type noopRecorder struct{}

func (noopRecorder) StateChanged(State)                     {}
func (noopRecorder) SessionRenewed(error)                   {}
func (noopRecorder) PollFinished(int, time.Duration, error) {}
func (noopRecorder) ItemProcessed(Stage, error)             {}

type noopReporter struct{}

func (noopReporter) Capture(error, map[string]string) {}
