package main

import (
	"database/sql"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Event types for the match log
const (
	EvtLobbyJoin   = "lobby_join"
	EvtMatchStart  = "match_start"
	EvtMatchEnd    = "match_end"
	EvtElimination = "elimination"
	EvtDisconnect  = "disconnect"
)

const (
	analyticsQueueSize  = 1024
	analyticsBatchSize  = 50
	analyticsFlushEvery = 5 * time.Second
)

// AnalyticsEvent represents a single trackable event
type AnalyticsEvent struct {
	Type          string
	ParticipantID string
	Data          string // JSON metadata (optional)
	Timestamp     time.Time
}

// Analytics batches session events into the database off the game path.
// With a nil db events are accepted and discarded.
type Analytics struct {
	db         *DB
	log        *zap.Logger
	events     chan AnalyticsEvent
	stop       chan struct{}
	wg         sync.WaitGroup
	once       sync.Once
	flushEvery time.Duration
}

// NewAnalytics creates and starts the analytics background writer
func NewAnalytics(db *DB, log *zap.Logger) *Analytics {
	a := &Analytics{
		db:         db,
		log:        log,
		events:     make(chan AnalyticsEvent, analyticsQueueSize),
		stop:       make(chan struct{}),
		flushEvery: analyticsFlushEvery,
	}
	a.wg.Add(1)
	go a.writer()
	return a
}

// Track enqueues an event for async persistence (non-blocking)
func (a *Analytics) Track(evtType, participantID, data string) {
	select {
	case <-a.stop:
		return
	default:
	}
	select {
	case a.events <- AnalyticsEvent{
		Type:          evtType,
		ParticipantID: participantID,
		Data:          data,
		Timestamp:     time.Now().UTC(),
	}:
	default:
		// Queue full: drop rather than block the session lock
	}
}

// Stop drains pending events and shuts the writer down
func (a *Analytics) Stop() {
	a.once.Do(func() { close(a.stop) })
	a.wg.Wait()
}

// writer is the background goroutine that batches and writes events to DB
func (a *Analytics) writer() {
	defer a.wg.Done()

	batch := make([]AnalyticsEvent, 0, analyticsBatchSize)
	ticker := time.NewTicker(a.flushEvery)
	defer ticker.Stop()

	for {
		select {
		case evt := <-a.events:
			batch = append(batch, evt)
			if len(batch) >= analyticsBatchSize {
				a.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				a.flush(batch)
				batch = batch[:0]
			}
		case <-a.stop:
			for {
				select {
				case evt := <-a.events:
					batch = append(batch, evt)
				default:
					a.flush(batch)
					return
				}
			}
		}
	}
}

// flush writes a batch of events to the database
func (a *Analytics) flush(events []AnalyticsEvent) {
	if a.db == nil || len(events) == 0 {
		return
	}
	tx, err := a.db.conn.Begin()
	if err != nil {
		a.log.Error("analytics: begin tx", zap.Error(err))
		return
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO analytics_events (event_type, participant_id, data, created_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		a.log.Error("analytics: prepare", zap.Error(err))
		return
	}
	defer stmt.Close()

	for _, evt := range events {
		pid := sql.NullString{String: evt.ParticipantID, Valid: evt.ParticipantID != ""}
		data := sql.NullString{String: evt.Data, Valid: evt.Data != ""}
		if _, err := stmt.Exec(evt.Type, pid, data, evt.Timestamp.Format(time.RFC3339)); err != nil {
			a.log.Error("analytics: insert", zap.String("type", evt.Type), zap.Error(err))
		}
	}
	if err := tx.Commit(); err != nil {
		a.log.Error("analytics: commit", zap.Error(err))
	}
}

// EventCounts returns counts of each event type for the last N days
func (a *Analytics) EventCounts(days int) (map[string]int, error) {
	result := make(map[string]int)
	if a.db == nil {
		return result, nil
	}
	rows, err := a.db.conn.Query(`
		SELECT event_type, COUNT(*) FROM analytics_events
		WHERE created_at >= strftime('%Y-%m-%dT%H:%M:%SZ', 'now', '-' || ? || ' days')
		GROUP BY event_type ORDER BY COUNT(*) DESC
	`, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var evtType string
		var count int
		if err := rows.Scan(&evtType, &count); err != nil {
			continue
		}
		result[evtType] = count
	}
	return result, rows.Err()
}
