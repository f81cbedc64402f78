// Package transport wraps a pion PeerConnection for one remote peer: ICE
// configuration, the negotiation surface the session machine drives, and the
// unordered data channel used for parameter streaming.
package transport

import (
	"context"
	"errors"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/yeonbit/avalink/internal/util"
)

// STUN servers for ICE candidate gathering. No TURN; the system is designed
// for direct P2P connectivity with zero infrastructure cost.
var stunServers = []string{
	"stun:stun.l.google.com:19302",
	"stun:stun1.l.google.com:19302",
}

// ParamChannelLabel is the label of the parameter-streaming data channel.
const ParamChannelLabel = "params"

// Peer owns one PeerConnection and its lifecycle. It is alive until Close is
// called, the connection fails, or the parent context is cancelled.
type Peer struct {
	pc *webrtc.PeerConnection

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.RWMutex
	pcState webrtc.PeerConnectionState
}

// NewPeer creates a Peer backed by a new PeerConnection configured with
// Google STUN servers.
func NewPeer(ctx context.Context) (*Peer, error) {
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{URLs: stunServers},
		},
	})
	if err != nil {
		return nil, err
	}

	pCtx, pCancel := context.WithCancel(ctx)
	p := &Peer{
		pc:      pc,
		ctx:     pCtx,
		cancel:  pCancel,
		pcState: webrtc.PeerConnectionStateNew,
	}

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		p.mu.Lock()
		p.pcState = state
		p.mu.Unlock()
	})

	return p, nil
}

// ---------------------------------------------------------------------------
// Negotiation surface (session.Link)
// ---------------------------------------------------------------------------

// CreateOffer generates an SDP offer.
func (p *Peer) CreateOffer() (webrtc.SessionDescription, error) {
	return p.pc.CreateOffer(nil)
}

// CreateAnswer generates an SDP answer.
func (p *Peer) CreateAnswer() (webrtc.SessionDescription, error) {
	return p.pc.CreateAnswer(nil)
}

// SetLocalDescription applies the local SDP.
func (p *Peer) SetLocalDescription(desc webrtc.SessionDescription) error {
	return p.pc.SetLocalDescription(desc)
}

// SetRemoteDescription applies the remote SDP.
func (p *Peer) SetRemoteDescription(desc webrtc.SessionDescription) error {
	return p.pc.SetRemoteDescription(desc)
}

// Rollback discards the pending local description.
func (p *Peer) Rollback() error {
	return p.pc.SetLocalDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeRollback})
}

// AddICECandidate adds a remote ICE candidate received through signaling.
func (p *Peer) AddICECandidate(init webrtc.ICECandidateInit) error {
	return p.pc.AddICECandidate(init)
}

// HasRemoteDescription reports whether a remote description has been applied.
func (p *Peer) HasRemoteDescription() bool {
	return p.pc.RemoteDescription() != nil
}

// ---------------------------------------------------------------------------
// Callbacks
// ---------------------------------------------------------------------------

// OnICECandidate registers a callback invoked for every locally gathered
// candidate. A nil candidate signals the end of gathering.
func (p *Peer) OnICECandidate(fn func(*webrtc.ICECandidate)) {
	p.pc.OnICECandidate(fn)
}

// OnConnectionStateChange registers a callback for connectivity transitions.
// Failed is terminal for this peer; no retry happens at this layer.
func (p *Peer) OnConnectionStateChange(fn func(webrtc.PeerConnectionState)) {
	p.pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		p.mu.Lock()
		p.pcState = state
		p.mu.Unlock()
		fn(state)
	})
}

// OnDataChannel registers a callback for channels opened by the remote side.
func (p *Peer) OnDataChannel(fn func(*webrtc.DataChannel)) {
	p.pc.OnDataChannel(fn)
}

// ---------------------------------------------------------------------------
// Data plane
// ---------------------------------------------------------------------------

// CreateParamChannel opens the parameter-streaming channel on the offering
// side: unordered, zero retransmissions. Recency beats completeness here;
// a dropped snapshot is invisible, a late one jerks the avatar backwards.
func (p *Peer) CreateParamChannel() (*webrtc.DataChannel, error) {
	ordered := false
	var maxRetransmits uint16 = 0

	return p.pc.CreateDataChannel(ParamChannelLabel, &webrtc.DataChannelInit{
		Ordered:        &ordered,
		MaxRetransmits: &maxRetransmits,
	})
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

// ConnectionState returns the last observed PeerConnection state.
func (p *Peer) ConnectionState() webrtc.PeerConnectionState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.pcState
}

// Done returns a channel closed when the peer is shut down.
func (p *Peer) Done() <-chan struct{} {
	return p.ctx.Done()
}

// Close shuts down the PeerConnection. Safe to call at any point, including
// mid-negotiation; in-flight callbacks become no-ops.
func (p *Peer) Close() error {
	p.cancel()
	if err := p.pc.Close(); err != nil && !errors.Is(err, webrtc.ErrConnectionClosed) {
		util.LogDebug("peer connection close: %v", err)
		return err
	}
	return nil
}
