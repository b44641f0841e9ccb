package main

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// App bundles the long-lived dependencies shared by every handler
type App struct {
	Config    Config
	Hub       *Hub
	Session   *Session
	Auth      *Auth
	Analytics *Analytics
	DB        *DB // nil when the event log is disabled
	Log       *zap.Logger

	upgrader websocket.Upgrader
}

// checkOrigin accepts same-host origins and the hosts listed in allowed
func checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // Non-browser clients don't send Origin
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		if u.Host == r.Host {
			return true
		}
		for _, host := range allowed {
			if strings.EqualFold(u.Host, host) {
				return true
			}
		}
		return false
	}
}

func extractIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// SetupRoutes configures HTTP routes
func SetupRoutes(app *App) *http.ServeMux {
	mux := http.NewServeMux()
	app.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     checkOrigin(app.Config.Server.AllowedOrigins),
	}

	if dir := app.Config.Server.ClientDir; dir != "" {
		fs := http.FileServer(http.Dir(dir))
		mux.Handle("GET /", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "no-cache")
			fs.ServeHTTP(w, r)
		}))
	}

	// Lobby and game channels share one session; the path only carries identity
	mux.HandleFunc("GET /lobby", app.serveWS)
	mux.HandleFunc("GET /ws/{id}", app.serveWS)
	mux.HandleFunc("GET /ws", app.serveWS)

	mux.HandleFunc("POST /api/guest", app.handleGuest)
	mux.HandleFunc("GET /api/status", app.handleStatus)
	mux.HandleFunc("GET /api/matches", app.handleMatches)
	mux.HandleFunc("GET /api/stats", app.handleStats)
	mux.HandleFunc("POST /api/admin/reset", app.handleAdminReset)

	return mux
}

// participantID resolves the handshake identity: a signed token, or the
// opaque id from the path or query when tokens are not required
func (app *App) participantID(r *http.Request) string {
	if tok := r.URL.Query().Get("token"); tok != "" {
		id, err := app.Auth.ValidateToken(tok)
		if err != nil {
			app.Log.Debug("rejecting token", zap.Error(err))
			return ""
		}
		return id
	}
	if app.Config.Auth.RequireToken {
		return ""
	}
	id := r.PathValue("id")
	if id == "" {
		id = r.URL.Query().Get("id")
	}
	id = strings.TrimSpace(id)
	if len(id) > maxParticipantLen {
		return ""
	}
	return id
}

func (app *App) serveWS(w http.ResponseWriter, r *http.Request) {
	ip := extractIP(r)
	if !app.Hub.CanAccept(ip) {
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}

	conn, err := app.upgrader.Upgrade(w, r, nil)
	if err != nil {
		app.Log.Debug("upgrade error", zap.Error(err))
		return
	}

	id := app.participantID(r)
	if id == "" {
		msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "missing participant id")
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		conn.Close()
		return
	}

	app.Hub.TrackConnect(ip)
	binary := r.URL.Query().Get("enc") == "msgpack"
	client := NewClient(app.Hub, app.Session, conn, id, ip, binary, app.Log)
	if prev, ok := app.Hub.Add(id, client).(*Client); ok {
		app.Log.Info("connection replaced", zap.String("participant", id))
		prev.closeReplaced()
	}

	go client.WritePump()
	app.Session.Connect(id)
	go client.ReadPump()
}

func (app *App) handleGuest(w http.ResponseWriter, r *http.Request) {
	id, token, err := app.Auth.IssueGuest()
	if err != nil {
		app.Log.Error("issue guest token", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, GuestMsg{ParticipantID: id, Token: token})
}

func (app *App) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, app.Session.Status())
}

func (app *App) handleMatches(w http.ResponseWriter, r *http.Request) {
	if app.DB == nil {
		writeJSON(w, http.StatusOK, []MatchRow{})
		return
	}
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, "bad limit", http.StatusBadRequest)
			return
		}
		limit = ClampInt(n, 1, 100)
	}
	matches, err := app.DB.RecentMatches(limit)
	if err != nil {
		app.Log.Error("recent matches", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

func (app *App) handleStats(w http.ResponseWriter, r *http.Request) {
	counts, err := app.Analytics.EventCounts(7)
	if err != nil {
		app.Log.Error("event counts", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

func (app *App) handleAdminReset(w http.ResponseWriter, r *http.Request) {
	user, pass, _ := r.BasicAuth()
	err := app.Auth.CheckAdmin(user, pass, extractIP(r))
	switch {
	case errors.Is(err, ErrAdminDisabled):
		http.NotFound(w, r)
		return
	case errors.Is(err, ErrRateLimited):
		http.Error(w, err.Error(), http.StatusTooManyRequests)
		return
	case err != nil:
		w.Header().Set("WWW-Authenticate", `Basic realm="bomberman"`)
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	app.Session.ForceReset()
	app.Log.Info("session reset by operator", zap.String("ip", extractIP(r)))
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
