package signal

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/emoedu/live/internal/app"
	"github.com/emoedu/live/internal/config"
	"github.com/emoedu/live/internal/core"
)

// stubConn is an in-memory peer endpoint for dispatch tests.
type stubConn struct {
	mu     sync.Mutex
	frames []core.Frame
}

func (s *stubConn) TrySend(f core.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, f)
	return nil
}

func (s *stubConn) Close() {}

func (s *stubConn) kinds(t *testing.T) []string {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.frames))
	for _, f := range s.frames {
		var m map[string]any
		if err := json.Unmarshal(f, &m); err != nil {
			t.Fatalf("frame not JSON: %v", err)
		}
		kind, _ := m["type"].(string)
		out = append(out, kind)
	}
	return out
}

func newTestController() *SignalWSController {
	relay := app.NewRelay(app.NewRegistry(), app.NewRooms(), app.DropPolicy{}, nil)
	return NewSignalWSController(relay, &config.Config{ReadLimit: 32768, PingPeriod: 54 * time.Second})
}

func wsConnForTest() *WsSignalConn {
	return &WsSignalConn{send: make(chan core.Frame, 8)}
}

func TestDispatchJoinBindsRoom(t *testing.T) {
	ctl := newTestController()
	conn := wsConnForTest()
	cid := ctl.Relay.Bind(conn)

	ctl.handleSignal(cid, conn, []byte(`{"type":"join","roomId":"room1","userId":"alice","displayName":"Alice","isTeacher":true}`))

	c, ok := ctl.Relay.Registry.Lookup(cid)
	if !ok || c.RoomID != "room1" || c.UserID != "alice" || !c.Teacher {
		t.Errorf("join did not bind identity: %+v", c)
	}
	if room, ok := ctl.Relay.Rooms.RoomOf(cid); !ok || room != "room1" {
		t.Errorf("join did not add membership: (%s,%v)", room, ok)
	}
}

func TestDispatchMalformedJSONDropped(t *testing.T) {
	ctl := newTestController()
	conn := wsConnForTest()
	cid := ctl.Relay.Bind(conn)

	ctl.handleSignal(cid, conn, []byte(`{"type":"join","roomId":`)) // truncated
	ctl.handleSignal(cid, conn, []byte(`not json at all`))

	if _, ok := ctl.Relay.Rooms.RoomOf(cid); ok {
		t.Error("malformed join still created membership")
	}
}

func TestDispatchJoinWithoutRoomDropped(t *testing.T) {
	ctl := newTestController()
	conn := wsConnForTest()
	cid := ctl.Relay.Bind(conn)

	ctl.handleSignal(cid, conn, []byte(`{"type":"join","userId":"alice"}`))

	if _, ok := ctl.Relay.Rooms.RoomOf(cid); ok {
		t.Error("join without roomId still created membership")
	}
}

func TestDispatchUnknownKindIgnored(t *testing.T) {
	ctl := newTestController()
	conn := wsConnForTest()
	cid := ctl.Relay.Bind(conn)

	ctl.handleSignal(cid, conn, []byte(`{"type":"frobnicate"}`)) // must not panic
}

func TestDispatchPingPong(t *testing.T) {
	ctl := newTestController()
	conn := wsConnForTest()
	cid := ctl.Relay.Bind(conn)

	ctl.handleSignal(cid, conn, []byte(`{"type":"ping"}`))

	select {
	case f := <-conn.send:
		var m map[string]any
		if err := json.Unmarshal(f, &m); err != nil || m["type"] != "pong" {
			t.Errorf("expected pong, got %s", f)
		}
	default:
		t.Fatal("ping produced no response")
	}
}

func TestDispatchOfferForwarded(t *testing.T) {
	ctl := newTestController()

	target := &stubConn{}
	targetID := ctl.Relay.Bind(target)
	ctl.Relay.Join(targetID, "room1", "alice", "Alice", true)

	sender := wsConnForTest()
	senderID := ctl.Relay.Bind(sender)
	ctl.Relay.Join(senderID, "room1", "bob", "Bob", false)

	ctl.handleSignal(senderID, sender, []byte(`{"type":"offer","targetUserId":"alice","offer":{"sdp":"SDP1","type":"offer"}}`))

	kinds := target.kinds(t)
	offers := 0
	for _, k := range kinds {
		if k == core.KindOffer {
			offers++
		}
	}
	if offers != 1 {
		t.Errorf("target saw %d offers (events: %v), want 1", offers, kinds)
	}
}

func TestDispatchOfferWithoutBodyDropped(t *testing.T) {
	ctl := newTestController()

	target := &stubConn{}
	targetID := ctl.Relay.Bind(target)
	ctl.Relay.Join(targetID, "room1", "alice", "Alice", true)

	sender := wsConnForTest()
	senderID := ctl.Relay.Bind(sender)
	ctl.Relay.Join(senderID, "room1", "bob", "Bob", false)

	ctl.handleSignal(senderID, sender, []byte(`{"type":"offer","targetUserId":"alice"}`))

	for _, k := range target.kinds(t) {
		if k == core.KindOffer {
			t.Fatal("bodyless offer was forwarded")
		}
	}
}

func TestDispatchEmotionRateLimited(t *testing.T) {
	ctl := newTestController()
	ctl.limiter = NewEmotionRateLimiter(2, time.Minute)

	peer := &stubConn{}
	peerID := ctl.Relay.Bind(peer)
	ctl.Relay.Join(peerID, "room1", "teacher", "T", true)

	sender := wsConnForTest()
	senderID := ctl.Relay.Bind(sender)
	ctl.Relay.Join(senderID, "room1", "bob", "Bob", false)

	for i := 0; i < 5; i++ {
		ctl.handleSignal(senderID, sender, []byte(`{"type":"emotion-event","emotion":"happy","confidence":0.8}`))
	}

	updates := 0
	for _, k := range peer.kinds(t) {
		if k == core.KindEmotionUpdate {
			updates++
		}
	}
	if updates != 2 {
		t.Errorf("peer saw %d emotion-updates, want 2 (limit)", updates)
	}
}

// Cancelling the server context must close idle sockets from the
// server side; clients blocked in a read see the connection drop.
func TestContextCancelClosesOpenSocket(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctl := newTestController()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := gin.New()
	r.GET("/api/ws/signal", func(c *gin.Context) { ctl.HandleSignal(ctx, c) })
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/signal"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close()

	cancel()

	if err := ws.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatal(err)
	}
	if _, _, err := ws.ReadMessage(); err == nil {
		t.Fatal("socket still open after server context cancellation")
	}
}
