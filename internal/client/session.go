package client

import (
	"github.com/pion/webrtc/v4"

	"github.com/yeonbit/avalink/internal/param"
	"github.com/yeonbit/avalink/internal/session"
	"github.com/yeonbit/avalink/internal/transport"
	"github.com/yeonbit/avalink/internal/util"
)

// peerSession bundles everything owned per remote peer: the pion wrapper,
// the negotiation machine, and the parameter channel.
type peerSession struct {
	remoteID string
	avatarID string

	peer    *transport.Peer
	machine *session.Machine
	params  *param.Channel
}

// startSession builds the session for a newly announced remote peer. The
// impolite side opens the parameter channel before offering so it rides the
// initial SDP; the polite side picks it up via OnDataChannel.
func (c *Client) startSession(remoteID, avatarID string) (*peerSession, error) {
	peer, err := transport.NewPeer(c.ctx)
	if err != nil {
		return nil, err
	}

	ps := &peerSession{
		remoteID: remoteID,
		avatarID: avatarID,
		peer:     peer,
		params:   param.NewChannel(),
	}
	ps.machine = session.New(c.opts.RoomID, c.opts.PeerID, remoteID, peer, c.sendSignal)

	if c.opts.OnSnapshot != nil {
		ps.params.OnSnapshot(func(s param.Snapshot) {
			c.opts.OnSnapshot(remoteID, s)
		})
	}

	peer.OnICECandidate(ps.machine.HandleLocalCandidate)

	peer.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		util.LogInfo("peer %s connection state: %s", remoteID, state)
		if c.opts.OnPeerState != nil {
			c.opts.OnPeerState(remoteID, state)
		}
		switch state {
		case webrtc.PeerConnectionStateFailed:
			// Terminal for this session. Reconnecting is the caller's
			// policy, not ours.
			c.removeSession(remoteID, "connection failed")
		case webrtc.PeerConnectionStateClosed:
			c.removeSession(remoteID, "connection closed")
		}
	})

	if ps.machine.Polite() {
		peer.OnDataChannel(func(dc *webrtc.DataChannel) {
			if dc.Label() != transport.ParamChannelLabel {
				return
			}
			ps.bindParamChannel(dc)
		})
	} else {
		dc, err := peer.CreateParamChannel()
		if err != nil {
			peer.Close()
			ps.params.Close()
			return nil, err
		}
		ps.bindParamChannel(dc)
	}

	util.Stats.AddSession()
	util.LogInfo("session with %s started (polite=%v, avatar=%s)", remoteID, ps.machine.Polite(), avatarID)
	return ps, nil
}

// bindParamChannel wires a data channel into the parameter stream.
func (ps *peerSession) bindParamChannel(dc *webrtc.DataChannel) {
	dc.OnOpen(func() {
		util.LogInfo("parameter channel with %s open", ps.remoteID)
		ps.params.Attach(dc)
	})
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		ps.params.Receive(msg.Data)
	})
	dc.OnClose(func() {
		ps.params.Detach()
	})
}

// close tears the session down. Safe to call on a session in any state.
func (ps *peerSession) close() {
	ps.params.Close()
	ps.peer.Close()
	util.Stats.RemoveSession()
}
