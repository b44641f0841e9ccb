package main

import "math/rand"

// Position is a cell on the board
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Direction is one of the four axis moves
type Direction int

const (
	DirUp Direction = iota
	DirDown
	DirLeft
	DirRight
)

var directions = [...]Direction{DirUp, DirDown, DirLeft, DirRight}

// Delta returns the unit step for d
func (d Direction) Delta() (int, int) {
	switch d {
	case DirUp:
		return 0, -1
	case DirDown:
		return 0, 1
	case DirLeft:
		return -1, 0
	default:
		return 1, 0
	}
}

// Add returns p moved n cells toward d
func (p Position) Add(d Direction, n int) Position {
	dx, dy := d.Delta()
	return Position{X: p.X + dx*n, Y: p.Y + dy*n}
}

// InBounds reports whether p lies on a size x size board
func (p Position) InBounds(size int) bool {
	return p.X >= 0 && p.X < size && p.Y >= 0 && p.Y < size
}

// Wall is a terrain cell. Unbreakable walls never move or disappear.
type Wall struct {
	Pos       Position
	Breakable bool
}

// SpawnPoints returns the four board corners, in the order players are
// assigned to them
func SpawnPoints(size int) []Position {
	n := size - 1
	return []Position{
		{X: 0, Y: 0},
		{X: n, Y: n},
		{X: n, Y: 0},
		{X: 0, Y: n},
	}
}

// SpawnFootprint returns the 2x2 block anchored at spawn, extending toward
// the board centre
func SpawnFootprint(spawn Position, size int) []Position {
	dx, dy := 1, 1
	if spawn.X >= size/2 {
		dx = -1
	}
	if spawn.Y >= size/2 {
		dy = -1
	}
	return []Position{
		spawn,
		{X: spawn.X + dx, Y: spawn.Y},
		{X: spawn.X, Y: spawn.Y + dy},
		{X: spawn.X + dx, Y: spawn.Y + dy},
	}
}

// GenerateTerrain places unbreakable walls on every (odd, odd) cell and
// scatters breakable walls with probability chance over the rest. Spawn
// footprints are always left empty, including any lattice cell inside them.
func GenerateTerrain(size int, spawns []Position, chance float64, rng *rand.Rand) map[Position]*Wall {
	reserved := make(map[Position]bool, len(spawns)*4)
	for _, s := range spawns {
		for _, c := range SpawnFootprint(s, size) {
			reserved[c] = true
		}
	}

	walls := make(map[Position]*Wall)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			pos := Position{X: x, Y: y}
			if reserved[pos] {
				continue
			}
			if x%2 == 1 && y%2 == 1 {
				walls[pos] = &Wall{Pos: pos}
				continue
			}
			if rng.Float64() < chance {
				walls[pos] = &Wall{Pos: pos, Breakable: true}
			}
		}
	}
	return walls
}
