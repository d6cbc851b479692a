package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Tunables
// ──────────────────────────────────────────────────────────────────────────────

const (
	writeDeadline  = 10 * time.Second
	pingInterval   = 30 * time.Second
	pongWait       = 35 * time.Second // must be > pingInterval
	maxMessageSize = 512              // bytes; clients only send join messages and pongs
	sendBufferSize = 256              // messages in each client send channel
)

// ──────────────────────────────────────────────────────────────────────────────
// Client
// ──────────────────────────────────────────────────────────────────────────────

// Client represents one connected WebSocket endpoint.  A client watches at
// most one auction at a time; joining another auction moves it.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte // buffered outbound message queue
	userID uuid.UUID   // zero-value = anonymous viewer
}

// joinRequest asks the hub to (re)subscribe a client to one auction's room.
type joinRequest struct {
	client    *Client
	auctionID uuid.UUID
}

// roomMessage is a payload addressed to every member of one auction's room.
type roomMessage struct {
	auctionID uuid.UUID
	data      []byte
}

// ──────────────────────────────────────────────────────────────────────────────
// Hub
// ──────────────────────────────────────────────────────────────────────────────

// Hub is the room registry: it tracks which live connections watch which
// auction and fans broadcasts out per room.  Membership is its own shared
// resource with its own synchronization — it never shares a lock with the bid
// processor, so a stalled broadcast can't delay bid acceptance.
// Run() must be called in a dedicated goroutine before ServeWs is used.
type Hub struct {
	// Room membership and its concurrency guard.
	mu         sync.RWMutex
	rooms      map[uuid.UUID]map[*Client]bool
	membership map[*Client]uuid.UUID // uuid.Nil = connected, no room yet

	// channels consumed by Run()
	register   chan *Client
	unregister chan *Client
	join       chan joinRequest
	broadcast  chan roomMessage

	// JWT signing key (optional – if empty, all connections are anonymous)
	jwtSecret []byte

	// upgrader is safe for concurrent use after construction.
	upgrader websocket.Upgrader
}

// NewHub creates a Hub ready to be started with Run().
// jwtSecret may be nil; WS connections will then be treated as anonymous.
func NewHub(jwtSecret []byte, allowedOrigins []string) *Hub {
	return &Hub{
		rooms:      make(map[uuid.UUID]map[*Client]bool),
		membership: make(map[*Client]uuid.UUID),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		join:       make(chan joinRequest, 64),
		broadcast:  make(chan roomMessage, 512),
		jwtSecret:  jwtSecret,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowedOrigins) == 0 {
					return true // dev mode: allow all
				}
				origin := r.Header.Get("Origin")
				for _, o := range allowedOrigins {
					if o == "*" || o == origin {
						return true
					}
				}
				return false
			},
		},
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Run — hub event loop
// ──────────────────────────────────────────────────────────────────────────────

// Run processes registration, joins, leaves, and room broadcasts sequentially.
// Call it once as a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.membership[client] = uuid.Nil
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.membership[client]; ok {
				h.removeFromRoomLocked(client)
				delete(h.membership, client)
				close(client.send)
			}
			h.mu.Unlock()

		case req := <-h.join:
			h.mu.Lock()
			if _, ok := h.membership[req.client]; ok {
				// One room at a time: old membership is removed first.
				h.removeFromRoomLocked(req.client)
				room, ok := h.rooms[req.auctionID]
				if !ok {
					room = make(map[*Client]bool)
					h.rooms[req.auctionID] = room
				}
				room[req.client] = true
				h.membership[req.client] = req.auctionID
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			for client := range h.rooms[msg.auctionID] {
				select {
				case client.send <- msg.data:
				default:
					// Client's buffer full — drop the message for this client.
					// The writePump will detect a stalled connection separately.
				}
			}
			h.mu.RUnlock()
		}
	}
}

// removeFromRoomLocked detaches a client from its current room, if any.
// Caller must hold h.mu.  Removing an absent client is a no-op.
func (h *Hub) removeFromRoomLocked(client *Client) {
	auctionID, ok := h.membership[client]
	if !ok || auctionID == uuid.Nil {
		return
	}
	if room, ok := h.rooms[auctionID]; ok {
		delete(room, client)
		if len(room) == 0 {
			delete(h.rooms, auctionID)
		}
	}
	h.membership[client] = uuid.Nil
}

// RoomSize returns the number of connections watching an auction.
func (h *Hub) RoomSize(auctionID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[auctionID])
}

// ConnectedCount returns the current number of connected clients.
func (h *Hub) ConnectedCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.membership)
}

// ──────────────────────────────────────────────────────────────────────────────
// ServeWs — HTTP → WebSocket upgrade
// ──────────────────────────────────────────────────────────────────────────────

// ServeWs upgrades an HTTP request to a WebSocket connection, optionally
// authenticates the caller via a JWT in the ?token= query parameter, and
// starts the read/write pumps.
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws.ServeWs: upgrade failed: %v", err)
		return
	}

	var userID uuid.UUID // zero = anonymous
	if token := r.URL.Query().Get("token"); token != "" && len(h.jwtSecret) > 0 {
		userID = h.parseJWT(token)
	}

	client := &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		userID: userID,
	}
	h.register <- client

	go client.writePump()
	go client.readPump()
}

// parseJWT extracts the user UUID from a signed token.
// Returns uuid.Nil on any failure (treated as anonymous).
func (h *Hub) parseJWT(tokenString string) uuid.UUID {
	tok, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return h.jwtSecret, nil
	})
	if err != nil || !tok.Valid {
		return uuid.Nil
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil
	}
	sub, _ := claims.GetSubject()
	id, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil
	}
	return id
}

// ──────────────────────────────────────────────────────────────────────────────
// Client pumps
// ──────────────────────────────────────────────────────────────────────────────

// writePump drains the client's send channel and writes messages to the
// WebSocket connection.  It also sends ping frames every pingInterval.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if !ok {
				// Hub closed the channel.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads frames from the WebSocket connection.  The only meaningful
// inbound message is a join request; everything else is discarded.  When the
// connection drops the client is unregistered — the implicit leave, idempotent
// and invisible to broadcasters.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("ws.readPump: unexpected close for user %s: %v", c.userID, err)
			}
			return
		}

		var msg JoinMessage
		if err := json.Unmarshal(data, &msg); err != nil || msg.Action != "join" {
			continue // not a join request; server is otherwise push-only
		}
		auctionID, err := uuid.Parse(msg.AuctionID)
		if err != nil || auctionID == uuid.Nil {
			// The zero UUID is membership's "no room" marker and must never
			// become a room key, or the client could not be removed again.
			c.hub.SendError(c, "ERR_INVALID_AUCTION_ID", "auctionId must be a valid UUID")
			continue
		}
		c.hub.join <- joinRequest{client: c, auctionID: auctionID}
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Broadcast helpers — implement service.Broadcaster
// ──────────────────────────────────────────────────────────────────────────────

// BroadcastPriceUpdate pushes the new price to every viewer of the auction.
func (h *Hub) BroadcastPriceUpdate(auctionID uuid.UUID, newPrice decimal.Decimal, bidderName string) {
	h.broadcastJSON(auctionID, PriceUpdateMessage{
		Type:              MsgTypePriceUpdate,
		AuctionID:         auctionID,
		NewPrice:          newPrice,
		HighestBidderName: bidderName,
		Timestamp:         time.Now().UTC(),
	})
}

// BroadcastAuctionClosed tells every viewer the auction has been settled.
func (h *Hub) BroadcastAuctionClosed(auctionID uuid.UUID, winnerName string, finalPrice decimal.Decimal) {
	h.broadcastJSON(auctionID, AuctionClosedMessage{
		Type:       MsgTypeAuctionClosed,
		AuctionID:  auctionID,
		WinnerName: winnerName,
		FinalPrice: finalPrice,
		Timestamp:  time.Now().UTC(),
	})
}

// broadcastJSON is the common marshalling path.  The send is non-blocking so a
// saturated hub never stalls the bid that triggered the broadcast.
func (h *Hub) broadcastJSON(auctionID uuid.UUID, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("ws.Hub: marshal error: %v", err)
		return
	}
	select {
	case h.broadcast <- roomMessage{auctionID: auctionID, data: data}:
	default:
		log.Printf("ws.Hub: broadcast channel full, message dropped")
	}
}

// SendError writes an error message directly to one client's send channel.
func (h *Hub) SendError(client *Client, code, message string) {
	data, err := json.Marshal(ErrorMessage{
		Type:    MsgTypeError,
		Code:    code,
		Message: message,
	})
	if err != nil {
		return
	}
	select {
	case client.send <- data:
	default:
	}
}
