package main

import (
	"sort"
	"time"
)

// Bomb is a planted charge waiting on its fuse. Range is copied from the
// owner at placement; later upgrades do not reach it.
type Bomb struct {
	ID       uint64
	OwnerID  string
	Pos      Position
	Range    int
	PlacedAt time.Time
}

// ToState converts to protocol state
func (b *Bomb) ToState() BombState {
	return BombState{X: b.Pos.X, Y: b.Pos.Y, OwnerID: b.OwnerID, Range: b.Range}
}

// Blast is the outcome of one detonation
type Blast struct {
	Batch     uint64
	BombID    uint64
	Cells     []Position // explosion markers, bomb cell first
	Destroyed []Position // breakable walls removed
	Spawned   []*PowerUp
}

// PlaceBomb plants a bomb under id. It refuses when the player already has
// MaxBombs live bombs or the cell already holds one.
func (r *Registry) PlaceBomb(id string, now time.Time) (*Bomb, bool) {
	p, ok := r.players[id]
	if !ok {
		return nil, false
	}
	if r.BombCount(id) >= p.MaxBombs {
		return nil, false
	}
	if r.bombAt(p.Pos) != nil {
		return nil, false
	}
	r.nextID++
	b := &Bomb{
		ID:       r.nextID,
		OwnerID:  id,
		Pos:      p.Pos,
		Range:    p.FlameRange,
		PlacedAt: now,
	}
	r.bombs[b.ID] = b
	return b, true
}

// BombCount returns how many live bombs ownerID has on the board
func (r *Registry) BombCount(ownerID string) int {
	n := 0
	for _, b := range r.bombs {
		if b.OwnerID == ownerID {
			n++
		}
	}
	return n
}

// Bomb returns the live bomb with id, or nil
func (r *Registry) Bomb(id uint64) *Bomb {
	return r.bombs[id]
}

func (r *Registry) bombAt(pos Position) *Bomb {
	for _, b := range r.bombs {
		if b.Pos == pos {
			return b
		}
	}
	return nil
}

func (r *Registry) liveBombs() []*Bomb {
	list := make([]*Bomb, 0, len(r.bombs))
	for _, b := range r.bombs {
		list = append(list, b)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

// Detonate removes the bomb and lays its explosion markers as one batch.
// Each arm walks outward up to Range cells and stops at the first wall; a
// breakable wall there is destroyed (and may leave a power-up) and its cell
// is marked, an unbreakable one is not. Other bombs in the blast are left
// alone. A bomb that is already gone yields ok == false.
func (r *Registry) Detonate(bombID uint64) (*Blast, bool) {
	b, ok := r.bombs[bombID]
	if !ok {
		return nil, false
	}
	delete(r.bombs, bombID)

	blast := &Blast{BombID: bombID, Cells: []Position{b.Pos}}
	for _, dir := range directions {
		for dist := 1; dist <= b.Range; dist++ {
			pos := b.Pos.Add(dir, dist)
			if !pos.InBounds(r.cfg.BoardSize) {
				break
			}
			w, hit := r.walls[pos]
			if !hit {
				blast.Cells = append(blast.Cells, pos)
				continue
			}
			if w.Breakable {
				delete(r.walls, pos)
				blast.Cells = append(blast.Cells, pos)
				blast.Destroyed = append(blast.Destroyed, pos)
				if pu := randomPowerUp(pos, r.cfg.PowerUpChance, r.rng); pu != nil {
					r.powerUps[pos] = pu
					blast.Spawned = append(blast.Spawned, pu)
				}
			}
			break
		}
	}

	r.nextID++
	blast.Batch = r.nextID
	r.explosions[blast.Batch] = blast.Cells
	return blast, true
}

// ApplyBlast takes one health point from every player on a blast cell and
// removes those at zero. It returns the eliminated players.
func (r *Registry) ApplyBlast(blast *Blast) (hit int, eliminated []*Player) {
	cells := make(map[Position]bool, len(blast.Cells))
	for _, c := range blast.Cells {
		cells[c] = true
	}
	for _, p := range r.Players() {
		if !cells[p.Pos] {
			continue
		}
		hit++
		if p.TakeHit() {
			delete(r.players, p.ID)
			eliminated = append(eliminated, p)
		}
	}
	return hit, eliminated
}

// ClearExplosions removes the markers of batch. Clearing twice is harmless.
func (r *Registry) ClearExplosions(batch uint64) bool {
	if _, ok := r.explosions[batch]; !ok {
		return false
	}
	delete(r.explosions, batch)
	return true
}
