package main

import (
	"math/rand"
	"testing"
	"time"
)

// newTestRegistry returns a registry with no terrain and power-ups disabled
func newTestRegistry() *Registry {
	cfg := DefaultGameConfig()
	cfg.PowerUpChance = 0
	return NewRegistry(cfg, rand.New(rand.NewSource(7)))
}

func placeAt(r *Registry, id string, pos Position) *Player {
	p := r.AddPlayer(id, id, 0)
	p.Pos = pos
	return p
}

func TestRegistryAddRemovePlayer(t *testing.T) {
	r := newTestRegistry()
	p := r.AddPlayer("a", "Alice", 0)
	if p == nil || p.Pos != (Position{0, 0}) {
		t.Fatalf("expected player at first spawn, got %+v", p)
	}
	if p.Health != 3 || p.MaxBombs != 1 || p.FlameRange != 1 || p.MoveRate != 3 {
		t.Errorf("unexpected base stats %+v", p)
	}
	if r.AddPlayer("a", "Again", 1) != nil {
		t.Error("duplicate add should be a no-op")
	}
	if r.Player("a").Name != "Alice" {
		t.Error("duplicate add must not overwrite the player")
	}
	if r.PlayerCount() != 1 {
		t.Errorf("expected 1 player, got %d", r.PlayerCount())
	}
	if !r.RemovePlayer("a") || r.PlayerCount() != 0 {
		t.Error("remove failed")
	}
	if r.RemovePlayer("a") {
		t.Error("second remove should report false")
	}
}

func TestRegistrySpawnCycling(t *testing.T) {
	r := newTestRegistry()
	spawns := SpawnPoints(15)
	for i := 0; i < 6; i++ {
		p := r.AddPlayer(string(rune('a'+i)), "p", i)
		if p.Pos != spawns[i%len(spawns)] {
			t.Errorf("player %d at %+v, want %+v", i, p.Pos, spawns[i%len(spawns)])
		}
	}
}

func TestRegistryMove(t *testing.T) {
	r := newTestRegistry()
	p := placeAt(r, "a", Position{2, 2})
	now := time.Now()

	if !r.MovePlayer("a", DirRight, now) {
		t.Fatal("expected move to succeed")
	}
	if p.Pos != (Position{3, 2}) || !p.LastMove.Equal(now) {
		t.Errorf("unexpected state after move: %+v", p)
	}
	if r.MovePlayer("ghost", DirRight, now) {
		t.Error("unknown player should not move")
	}
}

func TestRegistryMoveRateLimit(t *testing.T) {
	r := newTestRegistry()
	p := placeAt(r, "a", Position{2, 2})
	start := time.Now()
	r.MovePlayer("a", DirRight, start)

	early := start.Add(p.MoveInterval() - time.Millisecond)
	if r.MovePlayer("a", DirRight, early) {
		t.Fatal("move before the interval should be refused")
	}
	if p.Pos != (Position{3, 2}) || !p.LastMove.Equal(start) {
		t.Errorf("refused move changed state: %+v", p)
	}
	if !r.MovePlayer("a", DirRight, start.Add(p.MoveInterval())) {
		t.Error("move at the interval should succeed")
	}
}

func TestRegistryMoveBlocked(t *testing.T) {
	r := newTestRegistry()
	p := placeAt(r, "a", Position{2, 2})
	r.walls[Position{3, 2}] = &Wall{Pos: Position{3, 2}, Breakable: true}
	r.walls[Position{2, 1}] = &Wall{Pos: Position{2, 1}}
	r.bombs[99] = &Bomb{ID: 99, Pos: Position{1, 2}, Range: 1}

	now := time.Now()
	for _, dir := range []Direction{DirRight, DirUp, DirLeft} {
		if r.MovePlayer("a", dir, now) {
			t.Errorf("move %v should be blocked", dir)
		}
	}
	if p.Pos != (Position{2, 2}) || !p.LastMove.IsZero() {
		t.Errorf("blocked moves changed state: %+v", p)
	}
	if !r.MovePlayer("a", DirDown, now) {
		t.Error("open cell should accept the move")
	}
}

func TestRegistryMoveClampsToBoard(t *testing.T) {
	r := newTestRegistry()
	p := placeAt(r, "a", Position{0, 0})
	if r.MovePlayer("a", DirLeft, time.Now()) || r.MovePlayer("a", DirUp, time.Now()) {
		t.Error("moves off the board should be refused")
	}
	if p.Pos != (Position{0, 0}) {
		t.Errorf("player left the board: %+v", p.Pos)
	}
}

func TestRegistryMoveCollectsPowerUp(t *testing.T) {
	r := newTestRegistry()
	p := placeAt(r, "a", Position{2, 2})
	r.powerUps[Position{2, 3}] = &PowerUp{Pos: Position{2, 3}, Kind: PowerUpFlame}

	if !r.MovePlayer("a", DirDown, time.Now()) {
		t.Fatal("move failed")
	}
	if p.FlameRange != 2 {
		t.Errorf("expected flame range 2, got %d", p.FlameRange)
	}
	if r.PowerUp(Position{2, 3}) != nil {
		t.Error("power-up should be consumed")
	}
}

func TestSnapshotShape(t *testing.T) {
	r := newTestRegistry()
	r.GenerateTerrain()
	r.AddPlayer("a", "Alice", 0)
	r.AddPlayer("b", "Bob", 1)
	r.PlaceBomb("a", time.Now())

	s := r.Snapshot()
	if s.Type != MsgGameState {
		t.Errorf("unexpected type %q", s.Type)
	}
	if len(s.Players) != 2 || s.Players[0].ID != "a" || s.Players[1].ID != "b" {
		t.Errorf("players not ordered by slot: %+v", s.Players)
	}
	if len(s.Walls) != len(r.walls) {
		t.Errorf("expected %d walls, got %d", len(r.walls), len(s.Walls))
	}
	if len(s.Bombs) != 1 || s.Bombs[0].OwnerID != "a" {
		t.Errorf("unexpected bombs %+v", s.Bombs)
	}
	if s.Explosions == nil || s.PowerUps == nil {
		t.Error("empty collections should encode as arrays, not null")
	}
}
