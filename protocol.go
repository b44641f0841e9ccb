package main

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Client -> Server discriminators
const (
	ActMove        = "move"
	ActPlantBomb   = "plant_bomb"
	ActJoinLobby   = "joinLobby"
	ActSetNickname = "setNickname" // sent by the lobby page
	ActStartGame   = "startGame"
	TypeChat       = "chat"
)

// Server -> Client message types
const (
	MsgGameState   = "gameState"
	MsgPlayerList  = "playerList"
	MsgChat        = "chat"
	MsgCountdown   = "countdown"
	MsgJoinedLobby = "joinedLobby"
	MsgGameStart   = "gameStart"
	MsgRedirect    = "redirectToLobby"
	MsgEliminated  = "eliminated"
)

var (
	errUnknownAction = errors.New("unknown action")
	errBadPayload    = errors.New("bad action payload")
)

// Action is one decoded inbound request. The set of variants is closed.
type Action interface {
	action()
}

// MoveAction steps the player one cell
type MoveAction struct{ Dir Direction }

// PlantBombAction drops a bomb on the player's cell
type PlantBombAction struct{}

// JoinLobbyAction admits the sender to the roster, or renames it
type JoinLobbyAction struct{ Nickname string }

// StartGameAction skips the join countdown
type StartGameAction struct{}

// ChatAction relays one line to every connection
type ChatAction struct{ Text string }

func (MoveAction) action()      {}
func (PlantBombAction) action() {}
func (JoinLobbyAction) action() {}
func (StartGameAction) action() {}
func (ChatAction) action()      {}

// inMessage is the flat wire shape of every inbound payload
type inMessage struct {
	Action    string `json:"action"`
	Type      string `json:"type"`
	Direction string `json:"direction"`
	Nickname  string `json:"nickname"`
	Text      string `json:"text"`
}

// ParseDirection maps the browser key names to a Direction
func ParseDirection(s string) (Direction, bool) {
	switch s {
	case "ArrowUp":
		return DirUp, true
	case "ArrowDown":
		return DirDown, true
	case "ArrowLeft":
		return DirLeft, true
	case "ArrowRight":
		return DirRight, true
	}
	return 0, false
}

// DecodeAction validates raw once so the session only sees typed actions
func DecodeAction(raw []byte) (Action, error) {
	var m inMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", errBadPayload, err)
	}
	switch m.Action {
	case ActMove:
		dir, ok := ParseDirection(m.Direction)
		if !ok {
			return nil, fmt.Errorf("%w: direction %q", errBadPayload, m.Direction)
		}
		return MoveAction{Dir: dir}, nil
	case ActPlantBomb:
		return PlantBombAction{}, nil
	case ActJoinLobby, ActSetNickname:
		return JoinLobbyAction{Nickname: m.Nickname}, nil
	case ActStartGame:
		return StartGameAction{}, nil
	case "":
		if m.Type == TypeChat {
			return ChatAction{Text: m.Text}, nil
		}
	}
	return nil, fmt.Errorf("%w: action=%q type=%q", errUnknownAction, m.Action, m.Type)
}

// PlayerState is broadcast per player
type PlayerState struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Slot       int    `json:"slot"`
	X          int    `json:"x"`
	Y          int    `json:"y"`
	Health     int    `json:"health"`
	MaxBombs   int    `json:"maxBombs"`
	FlameRange int    `json:"flameRange"`
	Speed      int    `json:"speed"`
}

// WallState is broadcast per wall
type WallState struct {
	X         int  `json:"x"`
	Y         int  `json:"y"`
	Breakable bool `json:"breakable"`
}

// BombState is broadcast per live bomb
type BombState struct {
	X       int    `json:"x"`
	Y       int    `json:"y"`
	OwnerID string `json:"playerId"`
	Range   int    `json:"range"`
}

// PowerUpState is broadcast per power-up
type PowerUpState struct {
	X    int    `json:"x"`
	Y    int    `json:"y"`
	Kind string `json:"kind"`
}

// StateMsg is the full state snapshot
type StateMsg struct {
	Type       string         `json:"type"`
	Players    []PlayerState  `json:"players"`
	Walls      []WallState    `json:"walls"`
	Bombs      []BombState    `json:"bombs"`
	Explosions []Position     `json:"explosions"`
	PowerUps   []PowerUpState `json:"powerUps"`
}

// RosterEntry is one lobby participant
type RosterEntry struct {
	ParticipantID string `json:"participantId"`
	Nickname      string `json:"nickname"`
}

// PlayerListMsg is the lobby roster
type PlayerListMsg struct {
	Type    string        `json:"type"`
	Players []RosterEntry `json:"players"`
}

// ChatMsg relays one chat line
type ChatMsg struct {
	Type          string `json:"type"`
	ParticipantID string `json:"participantId"`
	Nickname      string `json:"nickname"`
	Text          string `json:"text"`
}

// CountdownMsg is sent once per tick while a countdown runs
type CountdownMsg struct {
	Type            string `json:"type"`
	TimeRemainingMs int64  `json:"timeRemainingMs"`
	IsLobbyTimer    bool   `json:"isLobbyTimer"`
}

// JoinedLobbyMsg acknowledges a join to the joiner
type JoinedLobbyMsg struct {
	Type          string `json:"type"`
	ParticipantID string `json:"participantId"`
	Nickname      string `json:"nickname"`
}

// GameStartMsg tells everyone the arena is live
type GameStartMsg struct {
	Type string `json:"type"`
}

// RedirectMsg sends everyone back to the lobby after a round
type RedirectMsg struct {
	Type       string `json:"type"`
	WinnerID   string `json:"winnerId,omitempty"`
	WinnerName string `json:"winnerName,omitempty"`
}

// EliminatedMsg notifies a player they are out
type EliminatedMsg struct {
	Type          string `json:"type"`
	ParticipantID string `json:"participantId"`
}

// GuestMsg is the response to POST /api/guest
type GuestMsg struct {
	ParticipantID string `json:"participantId"`
	Token         string `json:"token"`
}

// StatusMsg is the response to GET /api/status
type StatusMsg struct {
	Phase       string        `json:"phase"`
	Roster      []RosterEntry `json:"roster"`
	Players     int           `json:"players"`
	Connections int           `json:"connections"`
}
