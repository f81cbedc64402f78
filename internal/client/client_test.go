package client

import "testing"

func TestNormalizeRelayURL(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"localhost:3001", "ws://localhost:3001/ws"},
		{"ws://localhost:3001", "ws://localhost:3001/ws"},
		{"ws://localhost:3001/ws", "ws://localhost:3001/ws"},
		{"wss://relay.example.com", "wss://relay.example.com/ws"},
		{"https://relay.example.com", "wss://relay.example.com/ws"},
		{"  ws://spaced.example:3001  ", "ws://spaced.example:3001/ws"},
	}
	for _, tc := range cases {
		got, err := NormalizeRelayURL(tc.in)
		if err != nil {
			t.Errorf("NormalizeRelayURL(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("NormalizeRelayURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeRelayURLRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "   ", "://", "ws://"} {
		if _, err := NormalizeRelayURL(in); err == nil {
			t.Errorf("NormalizeRelayURL(%q) should fail", in)
		}
	}
}
