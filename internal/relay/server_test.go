package relay

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yeonbit/avalink/internal/signal"
)

func startRelay(t *testing.T) (wsURL, httpURL string) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	go hub.Run(ctx)

	srv := NewServer(hub)
	port, err := srv.Start("127.0.0.1:0")
	if err != nil {
		t.Fatalf("start relay: %v", err)
	}
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})

	return fmt.Sprintf("ws://127.0.0.1:%d/ws", port), fmt.Sprintf("http://127.0.0.1:%d", port)
}

func dialRelay(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial relay: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMsg(t *testing.T, conn *websocket.Conn) signal.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg signal.Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read relay message: %v", err)
	}
	return msg
}

func TestLivenessEndpoint(t *testing.T) {
	_, httpURL := startRelay(t)

	resp, err := http.Get(httpURL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if len(body) == 0 {
		t.Error("liveness body is empty")
	}
}

func TestEndToEndJoinAndRelay(t *testing.T) {
	wsURL, _ := startRelay(t)

	c1 := dialRelay(t, wsURL)
	c2 := dialRelay(t, wsURL)

	if err := c1.WriteJSON(signal.Message{Type: signal.TypeJoin, RoomID: "room-42", PeerID: "zzz", AvatarID: "fox"}); err != nil {
		t.Fatal(err)
	}
	if err := c2.WriteJSON(signal.Message{Type: signal.TypeJoin, RoomID: "room-42", PeerID: "aaa", AvatarID: "owl"}); err != nil {
		t.Fatal(err)
	}

	intro1 := readMsg(t, c1)
	if intro1.Type != signal.TypePeerJoined || intro1.PeerID != "aaa" {
		t.Fatalf("c1 introduction = %+v", intro1)
	}
	intro2 := readMsg(t, c2)
	if intro2.Type != signal.TypePeerJoined || intro2.PeerID != "zzz" {
		t.Fatalf("c2 introduction = %+v", intro2)
	}

	// An offer from c1 arrives at c2 with its payload untouched.
	offer := signal.Message{
		Type:    signal.TypeOffer,
		RoomID:  "room-42",
		PeerID:  "zzz",
		Payload: []byte(`{"type":"offer","sdp":"v=0\r\n"}`),
	}
	if err := c1.WriteJSON(offer); err != nil {
		t.Fatal(err)
	}
	relayed := readMsg(t, c2)
	if relayed.Type != signal.TypeOffer || relayed.PeerID != "zzz" {
		t.Fatalf("relayed = %+v", relayed)
	}
	if string(relayed.Payload) != string(offer.Payload) {
		t.Errorf("payload altered: %s", relayed.Payload)
	}
}

// TestMalformedMessageDoesNotKillRelay sends a malformed message, an
// offer with no roomId, and verifies the relay keeps serving everyone,
// including the misbehaving connection itself.
func TestMalformedMessageDoesNotKillRelay(t *testing.T) {
	wsURL, _ := startRelay(t)

	c1 := dialRelay(t, wsURL)
	c2 := dialRelay(t, wsURL)

	if err := c1.WriteJSON(signal.Message{Type: signal.TypeJoin, RoomID: "room-42", PeerID: "p1"}); err != nil {
		t.Fatal(err)
	}

	// Malformed: missing roomId (and peerId). Logged and dropped.
	if err := c1.WriteMessage(websocket.TextMessage, []byte(`{"type":"offer"}`)); err != nil {
		t.Fatal(err)
	}
	// Not even JSON.
	if err := c1.WriteMessage(websocket.TextMessage, []byte(`{{{`)); err != nil {
		t.Fatal(err)
	}

	// The connection survives: a later valid join from another client still
	// introduces both sides.
	if err := c2.WriteJSON(signal.Message{Type: signal.TypeJoin, RoomID: "room-42", PeerID: "p2"}); err != nil {
		t.Fatal(err)
	}

	intro := readMsg(t, c1)
	if intro.Type != signal.TypePeerJoined || intro.PeerID != "p2" {
		t.Fatalf("c1 received %+v, want peer-joined about p2", intro)
	}
	if intro2 := readMsg(t, c2); intro2.PeerID != "p1" {
		t.Fatalf("c2 received %+v, want peer-joined about p1", intro2)
	}
}

func TestPeerLeftOnDisconnect(t *testing.T) {
	wsURL, _ := startRelay(t)

	c1 := dialRelay(t, wsURL)
	c2 := dialRelay(t, wsURL)

	c1.WriteJSON(signal.Message{Type: signal.TypeJoin, RoomID: "room-9", PeerID: "p1"})
	c2.WriteJSON(signal.Message{Type: signal.TypeJoin, RoomID: "room-9", PeerID: "p2"})
	readMsg(t, c1)
	readMsg(t, c2)

	c1.Close()

	left := readMsg(t, c2)
	if left.Type != signal.TypePeerLeft || left.PeerID != "p1" {
		t.Fatalf("c2 received %+v, want peer-left about p1", left)
	}
}
