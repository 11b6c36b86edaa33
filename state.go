package metronome

import (
	"encoding/json"
	"fmt"
)

// MemberState describes where a member is in its cycle, as seen by the
// coordination loop's gate.
type MemberState int

const (
	// StateRunning means the member is still doing work for the current
	// cycle and must not be released.
	StateRunning MemberState = iota

	// StateFinished means the member is done for the current cycle. It is
	// moved back to StateRunning when the next tick it is due for fires.
	StateFinished

	// StateHidden means the member is permanently ready: it receives ticks
	// but never blocks the barrier and never has to re-declare readiness.
	StateHidden
)

// ready reports whether the state satisfies the gate.
func (s MemberState) ready() bool {
	return s == StateFinished || s == StateHidden
}

func (s MemberState) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateFinished:
		return "finished"
	case StateHidden:
		return "hidden"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

func (s MemberState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *MemberState) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	switch name {
	case "running":
		*s = StateRunning
	case "finished":
		*s = StateFinished
	case "hidden":
		*s = StateHidden
	default:
		return fmt.Errorf("metronome: unknown member state %q", name)
	}
	return nil
}
