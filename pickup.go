package main

import "math/rand"

// PowerUpKind is the upgrade a pickup grants
type PowerUpKind string

const (
	PowerUpBomb  PowerUpKind = "bomb"
	PowerUpFlame PowerUpKind = "flame"
	PowerUpSpeed PowerUpKind = "speed"
)

var powerUpKinds = [...]PowerUpKind{PowerUpBomb, PowerUpFlame, PowerUpSpeed}

// PowerUp lies on a cell freed by a destroyed wall until someone steps on it
type PowerUp struct {
	Pos  Position
	Kind PowerUpKind
}

// randomPowerUp rolls chance and, on success, picks a kind uniformly
func randomPowerUp(pos Position, chance float64, rng *rand.Rand) *PowerUp {
	if rng.Float64() >= chance {
		return nil
	}
	return &PowerUp{Pos: pos, Kind: powerUpKinds[rng.Intn(len(powerUpKinds))]}
}

// ToState converts to protocol state
func (p *PowerUp) ToState() PowerUpState {
	return PowerUpState{X: p.Pos.X, Y: p.Pos.Y, Kind: string(p.Kind)}
}
