package main

import (
	"math/rand"
	"testing"
	"time"
)

func TestNewPlayer(t *testing.T) {
	p := NewPlayer("test1", "Tester", 2, Position{14, 0}, 3)
	if p.ID != "test1" || p.Name != "Tester" || p.Slot != 2 {
		t.Errorf("unexpected identity %+v", p)
	}
	if p.Pos != (Position{14, 0}) {
		t.Errorf("expected spawn position, got %+v", p.Pos)
	}
	if p.Health != 3 || p.MaxBombs != BaseMaxBombs || p.FlameRange != BaseFlameRange || p.MoveRate != BaseMoveRate {
		t.Errorf("unexpected base stats %+v", p)
	}
	if !p.CanMove(time.Now()) {
		t.Error("a fresh player should be able to move")
	}
}

func TestPlayerTakeHit(t *testing.T) {
	p := NewPlayer("a", "a", 0, Position{}, 2)
	if p.TakeHit() {
		t.Error("first hit should not eliminate")
	}
	if !p.TakeHit() || p.Health != 0 {
		t.Errorf("second hit should eliminate, health %d", p.Health)
	}
}

func TestPlayerUpgradeCaps(t *testing.T) {
	p := NewPlayer("a", "a", 0, Position{}, 3)
	for i := 0; i < 10; i++ {
		p.Apply(PowerUpBomb)
		p.Apply(PowerUpFlame)
		p.Apply(PowerUpSpeed)
	}
	if p.MaxBombs != MaxBombsCap || p.FlameRange != MaxFlameRange || p.MoveRate != MaxMoveRate {
		t.Errorf("caps not enforced: %+v", p)
	}
	if p.MoveInterval() != time.Second/6 {
		t.Errorf("unexpected interval %v", p.MoveInterval())
	}
}

func TestPlayerToState(t *testing.T) {
	p := NewPlayer("a", "Ann", 1, Position{3, 4}, 3)
	p.Apply(PowerUpSpeed)
	s := p.ToState()
	if s.ID != "a" || s.Name != "Ann" || s.Slot != 1 || s.X != 3 || s.Y != 4 || s.Speed != 4 {
		t.Errorf("unexpected state %+v", s)
	}
}

func TestRandomPowerUp(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	if randomPowerUp(Position{1, 2}, 0, rng) != nil {
		t.Error("chance 0 should never spawn")
	}
	seen := map[PowerUpKind]bool{}
	for i := 0; i < 100; i++ {
		pu := randomPowerUp(Position{1, 2}, 1, rng)
		if pu == nil || pu.Pos != (Position{1, 2}) {
			t.Fatalf("chance 1 should always spawn at the cell, got %+v", pu)
		}
		seen[pu.Kind] = true
	}
	if len(seen) != len(powerUpKinds) {
		t.Errorf("expected every kind over 100 rolls, saw %v", seen)
	}
}
