// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package qbittorrent

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/autobrr/qbnc/internal/domain"
)

type addTagsCall struct {
	Hashes string
	Tags   string
}

// fakeQbittorrent emulates the handful of WebAPI endpoints the bridge uses.
// Like some real WebAPI versions, it ignores any tag filter on torrents/info.
type fakeQbittorrent struct {
	t *testing.T

	mu            sync.Mutex
	username      string
	password      string
	webAPIVersion string
	torrents      []map[string]any
	infoStatus    int
	addTagsStatus int
	logins        int
	infoQueries   []url.Values
	addTagsCalls  []addTagsCall
}

func newFakeQbittorrent(t *testing.T) (*fakeQbittorrent, *httptest.Server) {
	t.Helper()

	fake := &fakeQbittorrent{
		t:             t,
		username:      "admin",
		password:      "adminadmin",
		webAPIVersion: "2.11.4",
		infoStatus:    http.StatusOK,
		addTagsStatus: http.StatusOK,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2/auth/login", fake.handleLogin)
	mux.HandleFunc("/api/v2/app/webapiVersion", fake.handleWebAPIVersion)
	mux.HandleFunc("/api/v2/torrents/info", fake.handleInfo)
	mux.HandleFunc("/api/v2/torrents/addTags", fake.handleAddTags)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return fake, server
}

func (f *fakeQbittorrent) handleLogin(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.FormValue("username") != f.username || r.FormValue("password") != f.password {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("Fails."))
		return
	}

	f.logins++
	http.SetCookie(w, &http.Cookie{Name: "SID", Value: "session-id", Path: "/"})
	_, _ = w.Write([]byte("Ok."))
}

func (f *fakeQbittorrent) handleWebAPIVersion(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, _ = w.Write([]byte(f.webAPIVersion))
}

func (f *fakeQbittorrent) handleInfo(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.infoQueries = append(f.infoQueries, r.URL.Query())

	if f.infoStatus != http.StatusOK {
		w.WriteHeader(f.infoStatus)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(f.torrents); err != nil {
		f.t.Errorf("encode torrents: %v", err)
	}
}

func (f *fakeQbittorrent) handleAddTags(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.addTagsCalls = append(f.addTagsCalls, addTagsCall{
		Hashes: r.FormValue("hashes"),
		Tags:   r.FormValue("tags"),
	})

	if f.addTagsStatus != http.StatusOK {
		w.WriteHeader(f.addTagsStatus)
	}
}

func (f *fakeQbittorrent) snapshot() (int, []url.Values, []addTagsCall) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logins, append([]url.Values(nil), f.infoQueries...), append([]addTagsCall(nil), f.addTagsCalls...)
}

func testConfig(serverURL string) *domain.Config {
	return &domain.Config{
		DownloadClientURL:      serverURL,
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
		RequestTimeout:         5 * time.Second,
		ScanTimeout:            time.Minute,
	}
}

func torrentJSON(hash, name, tags string) map[string]any {
	return map[string]any{
		"hash":          hash,
		"name":          name,
		"tags":          tags,
		"progress":      1.0,
		"completion_on": 1_720_000_000,
		"state":         "uploading",
		"save_path":     "/downloads",
		"content_path":  "/downloads/" + name,
	}
}
