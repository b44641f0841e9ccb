package main

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSettings(t *testing.T) {
	db := openTestDB(t)
	if db.GetSetting("missing") != "" {
		t.Error("missing key should read as empty")
	}
	db.SetSetting("k", "v1")
	db.SetSetting("k", "v2")
	if got := db.GetSetting("k"); got != "v2" {
		t.Errorf("expected upsert to v2, got %q", got)
	}
}

func TestAnalyticsFlushOnStop(t *testing.T) {
	db := openTestDB(t)
	a := NewAnalytics(db, zaptest.NewLogger(t))

	a.Track(EvtLobbyJoin, "p1", "")
	a.Track(EvtLobbyJoin, "p2", "")
	a.Track(EvtMatchStart, "", `{"players":2}`)
	a.Track(EvtMatchEnd, "p1", `{"duration":12.5,"players":2,"winner":"Ann"}`)
	a.Stop()

	counts, err := a.EventCounts(7)
	if err != nil {
		t.Fatal(err)
	}
	if counts[EvtLobbyJoin] != 2 || counts[EvtMatchStart] != 1 || counts[EvtMatchEnd] != 1 {
		t.Errorf("unexpected counts %v", counts)
	}

	matches, err := db.RecentMatches(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	m := matches[0]
	if m.WinnerID != "p1" || m.WinnerName != "Ann" || m.Players != 2 || m.Duration != 12.5 {
		t.Errorf("unexpected match row %+v", m)
	}

	// Events after Stop are dropped without blocking
	a.Track(EvtDisconnect, "p1", "")
}

func TestAnalyticsWithoutDB(t *testing.T) {
	a := NewAnalytics(nil, zaptest.NewLogger(t))
	a.Track(EvtLobbyJoin, "p1", "")
	a.Stop()
	counts, err := a.EventCounts(7)
	if err != nil || len(counts) != 0 {
		t.Errorf("expected empty counts, got %v %v", counts, err)
	}
}

func TestSessionFeedsMatchLog(t *testing.T) {
	db := openTestDB(t)
	log := zaptest.NewLogger(t)
	a := NewAnalytics(db, log)
	hub := NewHub(ServerConfig{}, log)
	s := NewSession(fastGameConfig(), hub, a, nil, log)

	connect(s, hub, "a")
	connect(s, hub, "b")
	s.HandleAction("a", JoinLobbyAction{Nickname: "Ann"})
	s.HandleAction("b", JoinLobbyAction{Nickname: "Bob"})
	s.mu.Lock()
	s.cancelCountdown()
	s.activate()
	s.reg.RemovePlayer("b")
	s.checkPopulation()
	s.mu.Unlock()
	s.Close()
	a.Stop()

	matches, err := db.RecentMatches(5)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 || matches[0].WinnerID != "a" || matches[0].WinnerName != "Ann" || matches[0].Players != 2 {
		t.Errorf("unexpected matches %+v", matches)
	}
}
