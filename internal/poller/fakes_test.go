// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package poller

import (
	"context"
	"sync"
	"time"

	"github.com/autobrr/qbnc/internal/domain"
	"github.com/autobrr/qbnc/internal/nextcloud"
	"github.com/autobrr/qbnc/internal/qbittorrent"
)

// journal records calls across fakes so tests can assert ordering.
type journal struct {
	mu     sync.Mutex
	events []string
}

func (j *journal) add(event string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, event)
}

func (j *journal) snapshot() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.events...)
}

func (j *journal) count(event string) int {
	n := 0
	for _, e := range j.snapshot() {
		if e == event {
			n++
		}
	}
	return n
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeSessions struct {
	journal   *journal
	clock     *fakeClock
	acquireFn func() error
	verifyErr error
}

func (f *fakeSessions) Acquire(context.Context) (*qbittorrent.Session, error) {
	f.journal.add("acquire")
	if f.acquireFn != nil {
		if err := f.acquireFn(); err != nil {
			return nil, err
		}
	}
	return qbittorrent.NewSession(nil, f.clock.Now()), nil
}

func (f *fakeSessions) Verify(context.Context, *qbittorrent.Session) (string, error) {
	f.journal.add("verify")
	if f.verifyErr != nil {
		return "", f.verifyErr
	}
	return "2.11.4", nil
}

type fakeDetector struct {
	journal *journal
	mu      sync.Mutex
	records []domain.TorrentRecord
	err     error
	onQuery func()
}

func (f *fakeDetector) ListCompleted(context.Context, *qbittorrent.Session) ([]domain.TorrentRecord, error) {
	f.journal.add("query")
	if f.onQuery != nil {
		f.onQuery()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]domain.TorrentRecord(nil), f.records...), nil
}

type fakeMarker struct {
	journal *journal
	failFor map[string]error
	onMark  func(hash string)
}

func (f *fakeMarker) MarkDone(_ context.Context, _ *qbittorrent.Session, hash string) error {
	f.journal.add("mark:" + hash)
	if f.onMark != nil {
		f.onMark(hash)
	}
	return f.failFor[hash]
}

type fakeIndexer struct {
	journal  *journal
	failFor  map[string]error
	mu       sync.Mutex
	requests []nextcloud.RescanRequest
	ctxErrs  []error
}

func (f *fakeIndexer) Rescan(ctx context.Context, req nextcloud.RescanRequest) error {
	f.journal.add("rescan:" + req.Hash)
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	f.mu.Unlock()
	return f.failFor[req.Hash]
}

type fakeRecorder struct {
	mu       sync.Mutex
	states   []State
	renewals []error
	polls    int
	items    map[Stage][]error
}

func (f *fakeRecorder) StateChanged(state State) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, state)
}

func (f *fakeRecorder) SessionRenewed(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.renewals = append(f.renewals, err)
}

func (f *fakeRecorder) PollFinished(int, time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
}

func (f *fakeRecorder) ItemProcessed(stage Stage, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.items == nil {
		f.items = make(map[Stage][]error)
	}
	f.items[stage] = append(f.items[stage], err)
}

func (f *fakeRecorder) stateHistory() []State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]State(nil), f.states...)
}

type fakeReporter struct {
	mu       sync.Mutex
	captured []error
}

func (f *fakeReporter) Capture(err error, _ map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.captured = append(f.captured, err)
}

type harness struct {
	cfg        *domain.Config
	journal    *journal
	clock      *fakeClock
	sessions   *fakeSessions
	detector   *fakeDetector
	marker     *fakeMarker
	indexer    *fakeIndexer
	recorder   *fakeRecorder
	reporter   *fakeReporter
	controller *Controller
}

func testConfig() *domain.Config {
	return &domain.Config{
		DownloadClientURL:      "http://qbittorrent:8080",
		DownloadClientUsername: "admin",
		DownloadClientPassword: "adminadmin",
		DoneTag:                "done",
		IndexUser:              "alice",
		IndexRelPath:           "Downloads",
		IndexExecTargetName:    "nextcloud",
		IndexScanScope:         domain.ScanScopeRoot,
		PollInterval:           15 * time.Second,
		WakeInterval:           time.Second,
		SessionMaxAge:          55 * time.Minute,
		RequestTimeout:         time.Second,
		ScanTimeout:            time.Second,
	}
}

func newHarness(records ...domain.TorrentRecord) *harness {
	h := &harness{
		cfg:      testConfig(),
		journal:  &journal{},
		clock:    newFakeClock(),
		recorder: &fakeRecorder{},
		reporter: &fakeReporter{},
	}
	h.sessions = &fakeSessions{journal: h.journal, clock: h.clock}
	h.detector = &fakeDetector{journal: h.journal, records: records}
	h.marker = &fakeMarker{journal: h.journal, failFor: map[string]error{}}
	h.indexer = &fakeIndexer{journal: h.journal, failFor: map[string]error{}}

	h.controller = NewController(h.cfg, h.sessions, h.detector, h.marker, h.indexer)
	h.controller.SetRecorder(h.recorder)
	h.controller.SetReporter(h.reporter)
	h.controller.now = h.clock.Now
	h.controller.newID = func() string { return "cycle" }

	return h
}

// started runs the startup phase so poll can be driven directly.
func (h *harness) started(ctx context.Context) error {
	if err := h.controller.start(ctx); err != nil {
		return err
	}
	h.controller.setState(StateRunning)
	return nil
}

func completed(hash string, tags ...string) domain.TorrentRecord {
	return domain.TorrentRecord{
		Hash:  hash,
		Name:  "Torrent " + hash,
		State: domain.StateCompleted,
		Tags:  tags,
	}
}
