package main

import "time"

const (
	BaseMaxBombs   = 1
	BaseFlameRange = 1
	BaseMoveRate   = 3 // moves per second
	MaxBombsCap    = 5
	MaxFlameRange  = 5
	MaxMoveRate    = 6
)

// Player is a live participant on the board
type Player struct {
	ID         string
	Name       string
	Slot       int // spawn table index, also the render colour
	Pos        Position
	Health     int
	MaxBombs   int
	FlameRange int
	MoveRate   int
	LastMove   time.Time
}

// NewPlayer creates a player at pos with base upgrades
func NewPlayer(id, name string, slot int, pos Position, health int) *Player {
	return &Player{
		ID:         id,
		Name:       name,
		Slot:       slot,
		Pos:        pos,
		Health:     health,
		MaxBombs:   BaseMaxBombs,
		FlameRange: BaseFlameRange,
		MoveRate:   BaseMoveRate,
	}
}

// MoveInterval is the minimum time between two accepted moves
func (p *Player) MoveInterval() time.Duration {
	return time.Second / time.Duration(p.MoveRate)
}

// CanMove reports whether the rate limit has elapsed at now
func (p *Player) CanMove(now time.Time) bool {
	if p.LastMove.IsZero() {
		return true
	}
	return now.Sub(p.LastMove) >= p.MoveInterval()
}

// TakeHit removes one health point and reports whether the player is out
func (p *Player) TakeHit() bool {
	p.Health--
	return p.Health <= 0
}

// Apply grants the upgrade carried by kind
func (p *Player) Apply(kind PowerUpKind) {
	switch kind {
	case PowerUpBomb:
		p.MaxBombs = ClampInt(p.MaxBombs+1, BaseMaxBombs, MaxBombsCap)
	case PowerUpFlame:
		p.FlameRange = ClampInt(p.FlameRange+1, BaseFlameRange, MaxFlameRange)
	case PowerUpSpeed:
		p.MoveRate = ClampInt(p.MoveRate+1, BaseMoveRate, MaxMoveRate)
	}
}

// ToState converts to protocol state
func (p *Player) ToState() PlayerState {
	return PlayerState{
		ID:         p.ID,
		Name:       p.Name,
		Slot:       p.Slot,
		X:          p.Pos.X,
		Y:          p.Pos.Y,
		Health:     p.Health,
		MaxBombs:   p.MaxBombs,
		FlameRange: p.FlameRange,
		Speed:      p.MoveRate,
	}
}
