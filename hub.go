package main

import (
	"sync"

	"go.uber.org/zap"
)

// Broadcaster is the outbound side of one connection. Deliver must not
// block: a slow recipient drops frames instead of stalling the fan-out.
type Broadcaster interface {
	Deliver(f *Frame) error
}

// Hub is the connection directory: participant id -> outbound channel.
// Entries are added once identity is known and removed only by the
// connection's own termination path.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]Broadcaster
	log   *zap.Logger
	// Connection limiting (mutex-protected, accessed from HTTP handlers)
	connMu        sync.Mutex
	ipConns       map[string]int
	totalConns    int
	maxConnsPerIP int
	maxTotalConns int
}

// NewHub creates an empty directory
func NewHub(cfg ServerConfig, log *zap.Logger) *Hub {
	return &Hub{
		conns:         make(map[string]Broadcaster),
		log:           log,
		ipConns:       make(map[string]int),
		maxConnsPerIP: cfg.MaxConnsPerIP,
		maxTotalConns: cfg.MaxTotalConns,
	}
}

// CanAccept reports whether another connection from ip fits the limits
func (h *Hub) CanAccept(ip string) bool {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	if h.maxTotalConns > 0 && h.totalConns >= h.maxTotalConns {
		return false
	}
	if h.maxConnsPerIP > 0 && h.ipConns[ip] >= h.maxConnsPerIP {
		return false
	}
	return true
}

// TrackConnect counts an accepted connection from ip
func (h *Hub) TrackConnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]++
	h.totalConns++
}

// TrackDisconnect releases a slot taken by TrackConnect
func (h *Hub) TrackDisconnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]--
	if h.ipConns[ip] <= 0 {
		delete(h.ipConns, ip)
	}
	h.totalConns--
}

// Add registers b under id. A newer connection for the same id takes over
// the entry; the displaced one, if any, is returned for the caller to close.
func (h *Hub) Add(id string, b Broadcaster) Broadcaster {
	h.mu.Lock()
	defer h.mu.Unlock()
	prev := h.conns[id]
	h.conns[id] = b
	return prev
}

// Remove deletes id only if b is still its current entry, so a displaced
// connection closing late cannot evict its successor.
func (h *Hub) Remove(id string, b Broadcaster) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cur, ok := h.conns[id]; !ok || cur != b {
		return false
	}
	delete(h.conns, id)
	return true
}

// Has reports whether id has a live entry
func (h *Hub) Has(id string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.conns[id]
	return ok
}

// Count returns the number of directory entries
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Broadcast hands f to every entry. A failing recipient is logged and
// skipped; it stays in the directory for its own read loop to clean up.
func (h *Hub) Broadcast(f *Frame) (failed int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, b := range h.conns {
		if err := b.Deliver(f); err != nil {
			failed++
			h.log.Debug("deliver failed", zap.String("participant", id), zap.Error(err))
		}
	}
	return failed
}

// SendTo delivers f to one participant, if connected
func (h *Hub) SendTo(id string, f *Frame) error {
	h.mu.RLock()
	b, ok := h.conns[id]
	h.mu.RUnlock()
	if !ok {
		return errNotConnected
	}
	return b.Deliver(f)
}
