// Avalink client CLI entry point.
//
// Joins a room on the signaling relay, negotiates a direct WebRTC session
// with the other participant, and streams avatar parameter snapshots over an
// unordered data channel.
package main

import "github.com/yeonbit/avalink/internal/cli"

func main() {
	cli.Execute()
}
