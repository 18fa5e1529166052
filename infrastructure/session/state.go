// Package session implements the v3.4 three-step key handshake and the
// session-state machine shared by all three dialects (spec §3, §4.2).
package session

// Step is the handshake progress for a connection. Only V34 sessions pass
// through the intermediate steps; V31/V33 go straight from Disconnected to
// Established on TCP connect (spec §3).
type Step int

const (
	Disconnected Step = iota
	KeyStartSent
	KeyRespReceived
	Established
)

func (s Step) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case KeyStartSent:
		return "key_start_sent"
	case KeyRespReceived:
		return "key_resp_received"
	case Established:
		return "established"
	default:
		return "unknown"
	}
}

// State is the mutable, single-owner-per-connection session state from
// spec §3. It is not safe for concurrent use; the dispatcher's event loop
// is its sole owner.
type State struct {
	HaveSession bool
	Step        Step
	SessionKey  []byte // present iff Step == Established && protocol == V34
	LocalNonce  []byte
	RemoteNonce []byte
	MsgSeq      uint16
}

// NewState creates a fresh per-connection state with a newly generated
// local nonce and msg_seq starting at 1, per spec §3.
func NewState() (*State, error) {
	nonce, err := GenerateLocalNonce()
	if err != nil {
		return nil, err
	}
	return &State{
		Step:       Disconnected,
		LocalNonce: nonce,
		MsgSeq:     1,
	}, nil
}

// NextSeq returns the next outbound sequence number and advances the
// counter, wrapping per spec §4.1 ("msg_seq: u16 ... wraps").
func (s *State) NextSeq() uint16 {
	seq := s.MsgSeq
	s.MsgSeq++
	return seq
}

// Reset returns the state to Disconnected with fresh nonces and sequence
// numbers, as required on reconnection (spec §3 "Lifecycle").
func (s *State) Reset() error {
	nonce, err := GenerateLocalNonce()
	if err != nil {
		return err
	}
	s.HaveSession = false
	s.Step = Disconnected
	s.SessionKey = nil
	s.LocalNonce = nonce
	s.RemoteNonce = nil
	s.MsgSeq = 1
	return nil
}
