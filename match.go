package main

import "time"

// Phase is the lifecycle state of the session
type Phase int

const (
	PhaseLobby Phase = iota
	PhaseCountdown
	PhaseActive
	PhaseResetting
)

func (p Phase) String() string {
	switch p {
	case PhaseLobby:
		return "lobby"
	case PhaseCountdown:
		return "countdown"
	case PhaseActive:
		return "active"
	case PhaseResetting:
		return "resetting"
	}
	return "unknown"
}

// countdown is one running timer: join accumulation (lobby == true) or
// game start. It is current only while Session.countdown points at it.
type countdown struct {
	lobby    bool
	deadline time.Time
	stop     chan struct{}
}

func newCountdown(lobby bool, d time.Duration, now time.Time) *countdown {
	return &countdown{
		lobby:    lobby,
		deadline: now.Add(d),
		stop:     make(chan struct{}),
	}
}

func (c *countdown) remaining(now time.Time) time.Duration {
	return c.deadline.Sub(now)
}

// matchRecord tracks one active round for the event log
type matchRecord struct {
	startedAt time.Time
	players   int
}
