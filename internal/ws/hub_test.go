package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

func newTestServer(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(nil, nil)
	go hub.Run()
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWs))
	t.Cleanup(srv.Close)
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func joinRoom(t *testing.T, hub *Hub, conn *websocket.Conn, auctionID uuid.UUID) {
	t.Helper()
	msg := JoinMessage{Action: "join", AuctionID: auctionID.String()}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write join: %v", err)
	}
	waitFor(t, func() bool { return hub.RoomSize(auctionID) == 1 })
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached within deadline")
}

func TestHubDeliversPriceUpdateToRoom(t *testing.T) {
	hub, srv := newTestServer(t)
	conn := dial(t, srv)

	auctionID := uuid.New()
	joinRoom(t, hub, conn, auctionID)

	hub.BroadcastPriceUpdate(auctionID, decimal.RequireFromString("1300"), "alice")

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var got PriceUpdateMessage
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != MsgTypePriceUpdate {
		t.Errorf("type = %q, want %q", got.Type, MsgTypePriceUpdate)
	}
	if got.AuctionID != auctionID {
		t.Errorf("auctionId = %s, want %s", got.AuctionID, auctionID)
	}
	if !got.NewPrice.Equal(decimal.RequireFromString("1300")) {
		t.Errorf("newPrice = %s, want 1300", got.NewPrice)
	}
	if got.HighestBidderName != "alice" {
		t.Errorf("highestBidderName = %q, want alice", got.HighestBidderName)
	}
}

func TestHubScopesBroadcastToOneRoom(t *testing.T) {
	hub, srv := newTestServer(t)

	auctionA, auctionB := uuid.New(), uuid.New()
	connA := dial(t, srv)
	connB := dial(t, srv)
	joinRoomSecond := func(conn *websocket.Conn, id uuid.UUID) {
		msg := JoinMessage{Action: "join", AuctionID: id.String()}
		if err := conn.WriteJSON(msg); err != nil {
			t.Fatalf("write join: %v", err)
		}
	}
	joinRoom(t, hub, connA, auctionA)
	joinRoomSecond(connB, auctionB)
	waitFor(t, func() bool { return hub.RoomSize(auctionB) == 1 })

	hub.BroadcastPriceUpdate(auctionA, decimal.RequireFromString("500"), "bob")

	_ = connA.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := connA.ReadMessage(); err != nil {
		t.Fatalf("room A should receive the update: %v", err)
	}

	// Room B must stay silent.
	_ = connB.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, _, err := connB.ReadMessage(); err == nil {
		t.Error("room B received a message meant for room A")
	}
}

func TestHubJoinMovesClientBetweenRooms(t *testing.T) {
	hub, srv := newTestServer(t)
	conn := dial(t, srv)

	first, second := uuid.New(), uuid.New()
	joinRoom(t, hub, conn, first)

	msg := JoinMessage{Action: "join", AuctionID: second.String()}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write join: %v", err)
	}
	waitFor(t, func() bool {
		return hub.RoomSize(second) == 1 && hub.RoomSize(first) == 0
	})
}

func TestHubRemovesClientOnDisconnect(t *testing.T) {
	hub, srv := newTestServer(t)
	conn := dial(t, srv)

	auctionID := uuid.New()
	joinRoom(t, hub, conn, auctionID)

	conn.Close()
	waitFor(t, func() bool {
		return hub.RoomSize(auctionID) == 0 && hub.ConnectedCount() == 0
	})

	// Broadcasting into an empty room must not panic or block.
	hub.BroadcastAuctionClosed(auctionID, "alice", decimal.RequireFromString("2500"))
}

// The zero UUID parses cleanly but doubles as membership's "no room" marker,
// so a join carrying it must be rejected like any malformed id — otherwise the
// client would sit in a room that disconnect cleanup can never empty.
func TestHubRejectsZeroAuctionIDJoin(t *testing.T) {
	hub, srv := newTestServer(t)
	conn := dial(t, srv)
	waitFor(t, func() bool { return hub.ConnectedCount() == 1 })

	if err := conn.WriteJSON(JoinMessage{Action: "join", AuctionID: uuid.Nil.String()}); err != nil {
		t.Fatalf("write: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got ErrorMessage
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != MsgTypeError || got.Code != "ERR_INVALID_AUCTION_ID" {
		t.Errorf("got %+v, want error ERR_INVALID_AUCTION_ID", got)
	}
	if hub.RoomSize(uuid.Nil) != 0 {
		t.Errorf("rooms[uuid.Nil] has %d members, want 0", hub.RoomSize(uuid.Nil))
	}

	conn.Close()
	waitFor(t, func() bool {
		return hub.ConnectedCount() == 0 && hub.RoomSize(uuid.Nil) == 0
	})
}

func TestHubRejectsMalformedJoin(t *testing.T) {
	hub, srv := newTestServer(t)
	conn := dial(t, srv)
	waitFor(t, func() bool { return hub.ConnectedCount() == 1 })

	if err := conn.WriteJSON(JoinMessage{Action: "join", AuctionID: "not-a-uuid"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got ErrorMessage
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != MsgTypeError || got.Code != "ERR_INVALID_AUCTION_ID" {
		t.Errorf("got %+v, want error ERR_INVALID_AUCTION_ID", got)
	}
}
