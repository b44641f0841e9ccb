package main

import (
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 4096
	sendBufSize       = 256
	maxMessagesPerSec = 50
)

var (
	errClientClosed   = errors.New("client closed")
	errSendBufferFull = errors.New("send buffer full")
	errNotConnected   = errors.New("participant not connected")
)

// Client is one WebSocket connection with a known participant id
type Client struct {
	hub           *Hub
	session       *Session
	conn          *websocket.Conn
	send          chan []byte
	participantID string
	remoteAddr    string
	binaryState   bool // state snapshots as msgpack binary frames
	log           *zap.Logger
	msgCount      int
	msgResetAt    time.Time
}

// NewClient creates a new Client
func NewClient(hub *Hub, session *Session, conn *websocket.Conn, participantID, remoteAddr string, binaryState bool, log *zap.Logger) *Client {
	return &Client{
		hub:           hub,
		session:       session,
		conn:          conn,
		send:          make(chan []byte, sendBufSize),
		participantID: participantID,
		remoteAddr:    remoteAddr,
		binaryState:   binaryState,
		log:           log.With(zap.String("participant", participantID)),
	}
}

// ReadPump reads messages from the WebSocket connection. Its exit is the
// only place the client leaves the hub.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.TrackDisconnect(c.remoteAddr)
		if c.hub.Remove(c.participantID, c) {
			c.session.Disconnect(c.participantID)
		}
		close(c.send)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Info("ws read error", zap.Error(err))
			}
			break
		}

		// Flood guard: excess messages are dropped, the connection stays
		now := time.Now()
		if now.After(c.msgResetAt) {
			c.msgCount = 0
			c.msgResetAt = now.Add(time.Second)
		}
		c.msgCount++
		if c.msgCount > maxMessagesPerSec {
			continue
		}

		action, err := DecodeAction(message)
		if err != nil {
			c.log.Debug("ignoring message", zap.Error(err))
			continue
		}
		c.session.HandleAction(c.participantID, action)
	}
}

// closeReplaced shuts a connection whose participant id was taken over by a
// newer socket. Its ReadPump then exits without touching the session.
func (c *Client) closeReplaced() {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "replaced by a newer connection")
	c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	c.conn.Close()
}

// WritePump writes messages to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// Check for binary marker (0xFF prefix from enqueue)
			var err error
			if len(message) > 0 && message[0] == 0xFF {
				err = c.conn.WriteMessage(websocket.BinaryMessage, message[1:])
			} else {
				err = c.conn.WriteMessage(websocket.TextMessage, message)
			}
			if err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Deliver encodes f for this client and queues it without blocking
func (c *Client) Deliver(f *Frame) error {
	if c.binaryState && f.IsState() {
		data, err := f.Msgpack()
		if err != nil {
			return err
		}
		// Prefix with 0xFF so WritePump can tell it from text
		msg := make([]byte, len(data)+1)
		msg[0] = 0xFF
		copy(msg[1:], data)
		return c.enqueue(msg)
	}
	data, err := f.JSON()
	if err != nil {
		return err
	}
	return c.enqueue(data)
}

func (c *Client) enqueue(data []byte) (err error) {
	defer func() {
		if recover() != nil {
			err = errClientClosed
		}
	}()
	select {
	case c.send <- data:
		return nil
	default:
		// Client too slow, drop message
		return errSendBufferFull
	}
}
