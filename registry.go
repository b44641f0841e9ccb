package main

import (
	"math/rand"
	"sort"
	"time"
)

// Registry owns every entity of one session. It does no locking of its own:
// the owning Session serializes all calls.
type Registry struct {
	cfg        GameConfig
	rng        *rand.Rand
	players    map[string]*Player
	walls      map[Position]*Wall
	bombs      map[uint64]*Bomb
	explosions map[uint64][]Position // batch id -> marker cells
	powerUps   map[Position]*PowerUp
	nextID     uint64
}

// NewRegistry returns an empty registry with no terrain
func NewRegistry(cfg GameConfig, rng *rand.Rand) *Registry {
	return &Registry{
		cfg:        cfg,
		rng:        rng,
		players:    make(map[string]*Player),
		walls:      make(map[Position]*Wall),
		bombs:      make(map[uint64]*Bomb),
		explosions: make(map[uint64][]Position),
		powerUps:   make(map[Position]*PowerUp),
	}
}

// GenerateTerrain fills the board. Called once when a session goes active.
func (r *Registry) GenerateTerrain() {
	r.walls = GenerateTerrain(r.cfg.BoardSize, SpawnPoints(r.cfg.BoardSize), r.cfg.BreakableChance, r.rng)
}

// AddPlayer places id on spawn point slot (modulo the table). A second add
// for the same id is a no-op and returns nil.
func (r *Registry) AddPlayer(id, name string, slot int) *Player {
	if _, ok := r.players[id]; ok {
		return nil
	}
	spawns := SpawnPoints(r.cfg.BoardSize)
	p := NewPlayer(id, name, slot, spawns[slot%len(spawns)], r.cfg.StartHealth)
	r.players[id] = p
	return p
}

// RemovePlayer drops id. Bombs it already planted stay live.
func (r *Registry) RemovePlayer(id string) bool {
	if _, ok := r.players[id]; !ok {
		return false
	}
	delete(r.players, id)
	return true
}

// Player returns the player with id, or nil
func (r *Registry) Player(id string) *Player {
	return r.players[id]
}

// PlayerCount returns the number of live players
func (r *Registry) PlayerCount() int {
	return len(r.players)
}

// Players returns live players ordered by slot
func (r *Registry) Players() []*Player {
	list := make([]*Player, 0, len(r.players))
	for _, p := range r.players {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Slot < list[j].Slot })
	return list
}

// MovePlayer steps id one cell toward dir. It refuses when the rate limit has
// not elapsed, when the clamped target is the current cell, or when the
// target holds a wall or a live bomb. An accepted move collects any power-up
// on the target.
func (r *Registry) MovePlayer(id string, dir Direction, now time.Time) bool {
	p, ok := r.players[id]
	if !ok || !p.CanMove(now) {
		return false
	}
	target := p.Pos.Add(dir, 1)
	target.X = ClampInt(target.X, 0, r.cfg.BoardSize-1)
	target.Y = ClampInt(target.Y, 0, r.cfg.BoardSize-1)
	if target == p.Pos {
		return false
	}
	if _, blocked := r.walls[target]; blocked {
		return false
	}
	if r.bombAt(target) != nil {
		return false
	}
	p.Pos = target
	p.LastMove = now
	r.collect(p)
	return true
}

// collect hands the power-up under p to p, if there is one
func (r *Registry) collect(p *Player) bool {
	pu, ok := r.powerUps[p.Pos]
	if !ok {
		return false
	}
	delete(r.powerUps, p.Pos)
	p.Apply(pu.Kind)
	return true
}

// CollectPowerUps applies pickups for every player standing on one
func (r *Registry) CollectPowerUps() int {
	n := 0
	for _, p := range r.Players() {
		if r.collect(p) {
			n++
		}
	}
	return n
}

// Wall returns the wall at pos, or nil
func (r *Registry) Wall(pos Position) *Wall {
	return r.walls[pos]
}

// PowerUp returns the power-up at pos, or nil
func (r *Registry) PowerUp(pos Position) *PowerUp {
	return r.powerUps[pos]
}

// Explosions returns the distinct marker cells of every live batch
func (r *Registry) Explosions() []Position {
	seen := make(map[Position]bool)
	var out []Position
	for _, batch := range r.sortedBatches() {
		for _, c := range r.explosions[batch] {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	return out
}

func (r *Registry) sortedBatches() []uint64 {
	ids := make([]uint64, 0, len(r.explosions))
	for id := range r.explosions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Snapshot renders the full registry for broadcast
func (r *Registry) Snapshot() StateMsg {
	state := StateMsg{
		Type:       MsgGameState,
		Players:    make([]PlayerState, 0, len(r.players)),
		Walls:      make([]WallState, 0, len(r.walls)),
		Bombs:      make([]BombState, 0, len(r.bombs)),
		Explosions: make([]Position, 0),
		PowerUps:   make([]PowerUpState, 0, len(r.powerUps)),
	}
	for _, p := range r.Players() {
		state.Players = append(state.Players, p.ToState())
	}
	for _, w := range r.walls {
		state.Walls = append(state.Walls, WallState{X: w.Pos.X, Y: w.Pos.Y, Breakable: w.Breakable})
	}
	sort.Slice(state.Walls, func(i, j int) bool {
		a, b := state.Walls[i], state.Walls[j]
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})
	for _, b := range r.liveBombs() {
		state.Bombs = append(state.Bombs, b.ToState())
	}
	state.Explosions = append(state.Explosions, r.Explosions()...)
	for _, pu := range r.powerUps {
		state.PowerUps = append(state.PowerUps, pu.ToState())
	}
	sort.Slice(state.PowerUps, func(i, j int) bool {
		a, b := state.PowerUps[i], state.PowerUps[j]
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})
	return state
}
