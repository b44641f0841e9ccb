package main

import (
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	maxNameLen      = 16
	maxChatLen      = 200
	defaultNickname = "Bomber"
)

// EventSink receives session events for the match log
type EventSink interface {
	Track(evtType, participantID, data string)
}

type noopSink struct{}

func (noopSink) Track(string, string, string) {}

// Session is the single authoritative game. Every mutation, whether from a
// connection or from a bomb, explosion or countdown timer, runs under mu.
type Session struct {
	mu        sync.Mutex
	cfg       GameConfig
	rng       *rand.Rand
	hub       *Hub
	events    EventSink
	log       *zap.Logger
	now       func() time.Time
	phase     Phase
	reg       *Registry
	roster    []RosterEntry
	names     map[string]string // nickname per connected participant
	countdown *countdown
	match     *matchRecord
	closed    bool
}

// NewSession creates a session in the lobby phase
func NewSession(cfg GameConfig, hub *Hub, events EventSink, rng *rand.Rand, log *zap.Logger) *Session {
	if events == nil {
		events = noopSink{}
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Session{
		cfg:    cfg,
		rng:    rng,
		hub:    hub,
		events: events,
		log:    log,
		now:    time.Now,
		phase:  PhaseLobby,
		reg:    NewRegistry(cfg, rng),
		names:  make(map[string]string),
	}
}

// Phase returns the current phase
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Roster returns a copy of the admitted participants in join order
func (s *Session) Roster() []RosterEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RosterEntry(nil), s.roster...)
}

// PlayerCount returns the number of live players on the board
func (s *Session) PlayerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reg.PlayerCount()
}

// Status summarizes the session for the HTTP API
func (s *Session) Status() StatusMsg {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StatusMsg{
		Phase:       s.phase.String(),
		Roster:      append([]RosterEntry{}, s.roster...),
		Players:     s.reg.PlayerCount(),
		Connections: s.hub.Count(),
	}
}

// Connect brings a newly registered participant up to date
func (s *Session) Connect(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.hub.SendTo(id, NewFrame(s.rosterMsg()))
	if s.phase == PhaseActive {
		s.hub.SendTo(id, NewFrame(s.reg.Snapshot()))
	}
}

// Disconnect handles the end of id's connection. The caller has already
// removed it from the hub.
func (s *Session) Disconnect(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.names, id)
	if s.closed {
		return
	}
	s.events.Track(EvtDisconnect, id, "")

	switch s.phase {
	case PhaseActive:
		s.removeFromRoster(id)
		if s.reg.RemovePlayer(id) {
			s.broadcastState()
			s.checkPopulation()
		}
	case PhaseLobby, PhaseCountdown:
		if s.removeFromRoster(id) {
			s.broadcastRoster()
			s.checkRoster()
		}
	}
}

// HandleAction applies one decoded action from participant id
func (s *Session) HandleAction(id string, a Action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	switch a := a.(type) {
	case MoveAction:
		s.move(id, a.Dir)
	case PlantBombAction:
		s.plantBomb(id)
	case JoinLobbyAction:
		s.join(id, a.Nickname)
	case StartGameAction:
		s.start(id)
	case ChatAction:
		s.chat(id, a.Text)
	}
}

// ForceReset ends whatever is running and returns everyone to the lobby
func (s *Session) ForceReset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.cancelCountdown()
	s.reset()
}

// Close stops timers; pending bomb and explosion timers become no-ops
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.cancelCountdown()
}

func (s *Session) move(id string, dir Direction) {
	if s.phase != PhaseActive {
		return
	}
	if s.reg.MovePlayer(id, dir, s.now()) {
		s.broadcastState()
	}
}

func (s *Session) plantBomb(id string) {
	if s.phase != PhaseActive {
		return
	}
	b, ok := s.reg.PlaceBomb(id, s.now())
	if !ok {
		return
	}
	reg, bombID := s.reg, b.ID
	time.AfterFunc(s.cfg.FuseDelay, func() { s.detonate(reg, bombID) })
	s.broadcastState()
}

// detonate runs when a fuse burns down. reg pins the registry the bomb was
// planted in; after a reset it no longer matches and the call is dropped.
func (s *Session) detonate(reg *Registry, bombID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.reg != reg {
		return
	}
	blast, ok := reg.Detonate(bombID)
	if !ok {
		return
	}
	s.broadcastState()

	hit, eliminated := reg.ApplyBlast(blast)
	for _, p := range eliminated {
		s.removeFromRoster(p.ID)
		s.hub.SendTo(p.ID, NewFrame(EliminatedMsg{Type: MsgEliminated, ParticipantID: p.ID}))
		s.events.Track(EvtElimination, p.ID, "")
		s.log.Info("player eliminated", zap.String("participant", p.ID))
	}
	if collected := reg.CollectPowerUps(); hit > 0 || collected > 0 {
		s.broadcastState()
	}

	batch := blast.Batch
	time.AfterFunc(s.cfg.ExplosionWindow, func() { s.clearExplosions(reg, batch) })

	if len(eliminated) > 0 {
		s.checkPopulation()
	}
}

func (s *Session) clearExplosions(reg *Registry, batch uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.reg != reg {
		return
	}
	if reg.ClearExplosions(batch) {
		s.broadcastState()
	}
}

func (s *Session) join(id, nickname string) {
	nickname = truncate(nickname, maxNameLen)
	if nickname == "" {
		nickname = defaultNickname
	}
	s.names[id] = nickname
	if s.phase != PhaseLobby && s.phase != PhaseCountdown {
		return
	}

	if i := s.rosterIndex(id); i >= 0 {
		s.roster[i].Nickname = nickname
	} else {
		if len(s.roster) >= s.cfg.MaxPlayers {
			return
		}
		s.roster = append(s.roster, RosterEntry{ParticipantID: id, Nickname: nickname})
		s.events.Track(EvtLobbyJoin, id, "")
	}
	s.hub.SendTo(id, NewFrame(JoinedLobbyMsg{Type: MsgJoinedLobby, ParticipantID: id, Nickname: nickname}))
	s.broadcastRoster()
	s.checkRoster()
}

func (s *Session) start(id string) {
	if s.phase != PhaseLobby && s.phase != PhaseCountdown {
		return
	}
	if s.rosterIndex(id) < 0 || len(s.roster) < s.cfg.MinPlayers {
		return
	}
	if s.countdown == nil || s.countdown.lobby {
		s.startCountdown(false)
	}
}

func (s *Session) chat(id, text string) {
	text = truncate(text, maxChatLen)
	if text == "" {
		return
	}
	nickname, ok := s.names[id]
	if !ok {
		nickname = id
	}
	s.hub.Broadcast(NewFrame(ChatMsg{Type: MsgChat, ParticipantID: id, Nickname: nickname, Text: text}))
}

// checkRoster drives the lobby/countdown transitions from the roster size
func (s *Session) checkRoster() {
	n := len(s.roster)
	switch {
	case n < s.cfg.MinPlayers:
		if s.phase == PhaseCountdown {
			s.cancelCountdown()
			s.phase = PhaseLobby
			s.log.Info("countdown cancelled", zap.Int("roster", n))
		}
	case n >= s.cfg.MaxPlayers:
		if s.countdown == nil || s.countdown.lobby {
			s.startCountdown(false)
		}
	default:
		if s.countdown == nil {
			s.startCountdown(true)
		}
	}
}

func (s *Session) startCountdown(lobby bool) {
	s.cancelCountdown()
	d := s.cfg.StartCountdown
	if lobby {
		d = s.cfg.JoinCountdown
	}
	cd := newCountdown(lobby, d, s.now())
	s.countdown = cd
	s.phase = PhaseCountdown
	s.broadcastTick(cd, d)
	s.log.Info("countdown started", zap.Bool("lobby", lobby), zap.Duration("duration", d))
	go s.runCountdown(cd, d)
}

func (s *Session) cancelCountdown() {
	if s.countdown != nil {
		close(s.countdown.stop)
		s.countdown = nil
	}
}

// runCountdown ticks cd until it expires or is cancelled. Every tick
// re-checks under the lock that cd is still current, so a cancelled
// countdown never broadcasts again.
func (s *Session) runCountdown(cd *countdown, d time.Duration) {
	ticker := time.NewTicker(s.cfg.CountdownTick)
	defer ticker.Stop()
	expire := time.NewTimer(d)
	defer expire.Stop()

	for {
		select {
		case <-cd.stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			if s.countdown == cd {
				if rem := cd.remaining(s.now()); rem > 0 {
					s.broadcastTick(cd, rem)
				}
			}
			s.mu.Unlock()
		case <-expire.C:
			s.mu.Lock()
			if s.countdown == cd {
				s.countdown = nil
				s.countdownExpired(cd)
			}
			s.mu.Unlock()
			return
		}
	}
}

func (s *Session) countdownExpired(cd *countdown) {
	if cd.lobby {
		s.startCountdown(false)
		return
	}
	s.activate()
}

// activate generates terrain and turns the roster into players
func (s *Session) activate() {
	s.phase = PhaseActive
	s.reg.GenerateTerrain()
	for i, e := range s.roster {
		s.reg.AddPlayer(e.ParticipantID, e.Nickname, i)
	}
	s.match = &matchRecord{startedAt: s.now(), players: len(s.roster)}
	s.events.Track(EvtMatchStart, "", marshalEventData(map[string]interface{}{"players": len(s.roster)}))
	s.log.Info("game started", zap.Int("players", len(s.roster)))

	s.hub.Broadcast(NewFrame(GameStartMsg{Type: MsgGameStart}))
	s.broadcastState()
}

func (s *Session) checkPopulation() {
	if s.phase == PhaseActive && s.reg.PlayerCount() <= 1 {
		s.reset()
	}
}

// reset sends everyone back to the lobby and replaces the registry
func (s *Session) reset() {
	s.phase = PhaseResetting
	redirect := RedirectMsg{Type: MsgRedirect}
	if players := s.reg.Players(); len(players) == 1 {
		redirect.WinnerID = players[0].ID
		redirect.WinnerName = players[0].Name
	}
	s.hub.Broadcast(NewFrame(redirect))

	if s.match != nil {
		s.events.Track(EvtMatchEnd, redirect.WinnerID, marshalEventData(map[string]interface{}{
			"duration": s.now().Sub(s.match.startedAt).Seconds(),
			"players":  s.match.players,
			"winner":   redirect.WinnerName,
		}))
	}
	s.log.Info("session reset", zap.String("winner", redirect.WinnerID))

	s.reg = NewRegistry(s.cfg, s.rng)
	s.roster = nil
	s.match = nil
	s.phase = PhaseLobby
	s.broadcastRoster()
}

func (s *Session) rosterIndex(id string) int {
	for i, e := range s.roster {
		if e.ParticipantID == id {
			return i
		}
	}
	return -1
}

func (s *Session) removeFromRoster(id string) bool {
	i := s.rosterIndex(id)
	if i < 0 {
		return false
	}
	s.roster = append(s.roster[:i], s.roster[i+1:]...)
	return true
}

func (s *Session) rosterMsg() PlayerListMsg {
	return PlayerListMsg{Type: MsgPlayerList, Players: append([]RosterEntry{}, s.roster...)}
}

func (s *Session) broadcastRoster() {
	s.hub.Broadcast(NewFrame(s.rosterMsg()))
}

func (s *Session) broadcastState() {
	s.hub.Broadcast(NewFrame(s.reg.Snapshot()))
}

func (s *Session) broadcastTick(cd *countdown, rem time.Duration) {
	s.hub.Broadcast(NewFrame(CountdownMsg{
		Type:            MsgCountdown,
		TimeRemainingMs: rem.Milliseconds(),
		IsLobbyTimer:    cd.lobby,
	}))
}

func marshalEventData(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}
