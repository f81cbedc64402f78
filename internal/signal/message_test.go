package signal

import (
	"bytes"
	"errors"
	"testing"
)

func TestDecodeValidJoin(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"join","roomId":"room-42","peerId":"p1","avatarId":"fox"}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if msg.Type != TypeJoin || msg.RoomID != "room-42" || msg.PeerID != "p1" || msg.AvatarID != "fox" {
		t.Errorf("decoded = %+v", msg)
	}
}

func TestDecodePayloadStaysOpaque(t *testing.T) {
	raw := []byte(`{"type":"offer","roomId":"r","peerId":"p1","payload":{"type":"offer","sdp":"v=0\r\n","extra":[1,2,3]}}`)
	msg, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	// The payload must be preserved byte for byte so the relay can forward
	// it without understanding it.
	if !bytes.Contains(msg.Payload, []byte(`"extra":[1,2,3]`)) {
		t.Errorf("payload not preserved: %s", msg.Payload)
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	cases := []struct {
		name string
		data string
		want error
	}{
		{"not json", `{{{`, nil},
		{"unknown type", `{"type":"teleport","roomId":"r","peerId":"p"}`, ErrUnknownType},
		{"missing roomId", `{"type":"offer","peerId":"p"}`, ErrMissingRoom},
		{"missing peerId", `{"type":"offer","roomId":"r"}`, ErrMissingPeer},
		{"empty object", `{}`, ErrUnknownType},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode([]byte(tc.data))
			if err == nil {
				t.Fatal("expected error")
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestEncodeDecodeEnvelope(t *testing.T) {
	in := Message{Type: TypePeerJoined, RoomID: "room-42", PeerID: "p2", AvatarID: "owl"}
	data, err := Encode(in)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if out.Type != in.Type || out.RoomID != in.RoomID || out.PeerID != in.PeerID || out.AvatarID != in.AvatarID {
		t.Errorf("round trip = %+v, want %+v", out, in)
	}
}
