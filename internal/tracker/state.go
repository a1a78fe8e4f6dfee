package tracker

import "time"

// Phase is the externally visible state of the tracker.
type Phase string

const (
	PhaseIdle               Phase = "idle"
	PhaseTrackingUnreported Phase = "tracking_unreported"
	PhaseTrackingReported   Phase = "tracking_reported"
	PhaseTerminated         Phase = "terminated"
)

// State is everything the tracker remembers between ticks.
type State struct {
	LastPointerModTime int64 // unix millis
	LastRecordModTime  int64
	LastEventsModTime  int64

	Pointer *WorldPointer
	Events  []string
	WorldID string

	// LastSent is the last serialized payload, without the access key.
	LastSent   string
	LastSendAt time.Time

	ReportedActive bool
	Terminated     bool
}

// resetRun clears everything tied to the previous world. The pointer mtime is kept.
func (s *State) resetRun() {
	*s = State{LastPointerModTime: s.LastPointerModTime, Pointer: s.Pointer}
}

// Phase derives the lifecycle phase from the state flags.
func (s *State) Phase() Phase {
	switch {
	case s.Pointer == nil:
		return PhaseIdle
	case s.Terminated:
		return PhaseTerminated
	case s.ReportedActive:
		return PhaseTrackingReported
	default:
		return PhaseTrackingUnreported
	}
}
