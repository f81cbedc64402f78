package session

import "github.com/pion/webrtc/v4"

// candidateQueue buffers remote ICE candidates that arrive before a remote
// description exists. Drain order equals receipt order: the candidates were
// gathered in a deliberate sequence and pion applies them as they come.
type candidateQueue struct {
	pending []webrtc.ICECandidateInit
}

func (q *candidateQueue) push(c webrtc.ICECandidateInit) {
	q.pending = append(q.pending, c)
}

// drain returns the queued candidates in receipt order and empties the queue.
func (q *candidateQueue) drain() []webrtc.ICECandidateInit {
	out := q.pending
	q.pending = nil
	return out
}

func (q *candidateQueue) len() int {
	return len(q.pending)
}
