package realtime

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/cppla/fitquest/utils"
)

const (
	EventAuthenticate  = "authenticate"
	EventAuthenticated = "authenticated"
	EventJoinUserRoom  = "join_user_room"
	EventJoined        = "joined"
	EventError         = "error"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 32
)

// TokenVerifier resolves a bearer token to the user it was issued for.
type TokenVerifier func(token string) (uint, error)

// Client is one websocket session.
type Client struct {
	id     string
	hub    *Hub
	conn   *websocket.Conn
	verify TokenVerifier

	send chan []byte
	done chan struct{}
	once sync.Once

	mu     sync.Mutex
	userID uint
}

func newClient(hub *Hub, conn *websocket.Conn, verify TokenVerifier) *Client {
	return &Client{
		id:     uuid.NewString(),
		hub:    hub,
		conn:   conn,
		verify: verify,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}
}

// UserID is the verified identity, zero until authenticate succeeds.
func (c *Client) UserID() uint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

// enqueue never blocks; a full queue drops the frame.
func (c *Client) enqueue(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		utils.Sugar.Debugf("ws client=%s queue full, dropping frame", c.id)
		return false
	}
}

func (c *Client) reply(event string, payload any) {
	frame, err := encodeFrame(event, payload)
	if err != nil {
		return
	}
	c.enqueue(frame)
}

func (c *Client) close() {
	c.once.Do(func() {
		close(c.done)
		if c.conn != nil {
			c.conn.Close()
		}
	})
}

// handleMessage dispatches one inbound frame.
func (c *Client) handleMessage(raw []byte) {
	var in Frame
	if err := json.Unmarshal(raw, &in); err != nil {
		c.reply(EventError, gin.H{"message": "malformed frame"})
		return
	}
	switch in.Event {
	case EventAuthenticate:
		c.authenticate(in.Data)
	case EventJoinUserRoom:
		c.joinUserRoom(in.Data)
	default:
		c.reply(EventError, gin.H{"message": "unknown event"})
	}
}

func (c *Client) authenticate(data json.RawMessage) {
	token := strings.TrimSpace(decodeToken(data))
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		c.reply(EventAuthenticated, gin.H{"success": false, "error": "token required"})
		return
	}
	uid, err := c.verify(token)
	if err != nil || uid == 0 {
		utils.Sugar.Warnf("ws client=%s authenticate failed: %v", c.id, err)
		c.reply(EventAuthenticated, gin.H{"success": false, "error": "invalid token"})
		return
	}

	c.mu.Lock()
	prev := c.userID
	c.userID = uid
	c.mu.Unlock()
	if prev != 0 && prev != uid {
		// re-authenticating as someone else drops the old rooms
		c.hub.Remove(c)
		err = c.hub.Register(c)
	}
	if err == nil {
		err = c.hub.Subscribe(c, Topic(uid))
	}
	if err != nil {
		c.mu.Lock()
		c.userID = 0
		c.mu.Unlock()
		utils.Sugar.Warnf("ws client=%s subscribe user=%d failed: %v", c.id, uid, err)
		c.reply(EventAuthenticated, gin.H{"success": false, "error": "realtime unavailable"})
		return
	}
	utils.Sugar.Infof("ws client=%s authenticated user=%d", c.id, uid)
	c.reply(EventAuthenticated, gin.H{"success": true, "userId": uid})
}

func (c *Client) joinUserRoom(data json.RawMessage) {
	uid := c.UserID()
	if uid == 0 {
		c.reply(EventError, gin.H{"message": "authenticate first"})
		return
	}
	requested, err := decodeUserID(data)
	if err != nil {
		c.reply(EventError, gin.H{"message": "invalid user id"})
		return
	}
	if requested != uid {
		utils.Sugar.Warnf("ws client=%s user=%d tried to join room of user=%d", c.id, uid, requested)
		c.reply(EventError, gin.H{"message": "forbidden"})
		return
	}
	if err := c.hub.Subscribe(c, Topic(uid)); err != nil {
		c.reply(EventError, gin.H{"message": "realtime unavailable"})
		return
	}
	c.reply(EventJoined, gin.H{"room": Topic(uid)})
}

// decodeToken accepts "token" or {"token": "..."}.
func decodeToken(data json.RawMessage) string {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s
	}
	var obj struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(data, &obj); err == nil {
		return obj.Token
	}
	return ""
}

// decodeUserID accepts 42, "42", "user_42" or {"userId": 42}.
func decodeUserID(data json.RawMessage) (uint, error) {
	var n uint
	if err := json.Unmarshal(data, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimSpace(s), "user_"), 10, 64)
		if err != nil {
			return 0, err
		}
		return uint(v), nil
	}
	var obj struct {
		UserID uint `json:"userId"`
	}
	if err := json.Unmarshal(data, &obj); err == nil && obj.UserID != 0 {
		return obj.UserID, nil
	}
	return 0, errors.New("unrecognized user id")
}

// readPump feeds inbound frames to handleMessage until the connection fails.
func (c *Client) readPump() {
	defer func() {
		c.hub.Remove(c)
		c.close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				utils.Sugar.Debugf("ws client=%s read error: %v", c.id, err)
			}
			return
		}
		c.handleMessage(msg)
	}
}

// writePump is the only writer on the connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()
	for {
		select {
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeWait))
			return
		}
	}
}
