package metronome

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

const (
	registerTimeout = time.Second
	tickRecvTimeout = time.Second
)

var (
	// ErrManagerGone is returned when the manager's coordination loop has
	// terminated.
	ErrManagerGone = errors.New("metronome: manager has shut down")

	// ErrRegisterTimeout is returned when registration does not produce an
	// assigned id in time.
	ErrRegisterTimeout = errors.New("metronome: timed out waiting for assigned member id")
)

/*
A Member is one participant's proxy to the barrier. Constructing one
registers it with the manager; Close unregisters it. A Member is intended
to be driven by a single goroutine: the one doing the work that the
barrier paces.
*/
type Member struct {
	id      MemberID
	handle  Handle
	replies chan reply

	lastStep  uint64
	closeOnce sync.Once
}

/*
NewMember registers a new member and blocks until the manager assigns it
an id. A member cannot exist without one, so a timeout, a reply of the
wrong kind, or a manager that has already shut down all fail
construction.

A speedFactor of k makes the member due once every k steps; values below
1 are treated as 1.
*/
func NewMember(handle Handle, speedFactor int) (*Member, error) {
	replies := make(chan reply, 1)
	if !handle.send(registerCommand{speedFactor: speedFactor, replies: replies}) {
		return nil, ErrManagerGone
	}

	select {
	case r := <-replies:
		if r.kind != replySelfID {
			return nil, fmt.Errorf("metronome: expected assigned id, got reply kind %d", r.kind)
		}
		return &Member{id: r.id, handle: handle, replies: replies}, nil
	case <-handle.exited:
		return nil, ErrManagerGone
	case <-time.After(registerTimeout):
		return nil, ErrRegisterTimeout
	}
}

// ID returns the identifier assigned at registration.
func (m *Member) ID() MemberID {
	return m.id
}

// LastStep returns the global step number of the last tick this member
// received, or 0 if it has not been ticked yet.
func (m *Member) LastStep() uint64 {
	return m.lastStep
}

// SetState declares the member's state to the manager. Best effort: once
// the manager is gone this is a silent no-op.
func (m *Member) SetState(state MemberState) {
	m.handle.SetMemberState(m.id, state)
}

/*
WaitForTick declares the member finished for this cycle and blocks until
the manager releases it with a tick. Receive timeouts and unexpected
replies are retried transparently; the only failure the caller can
observe is the manager having shut down.
*/
func (m *Member) WaitForTick() error {
	m.SetState(StateFinished)
	for {
		select {
		case r := <-m.replies:
			if r.kind == replyTick {
				m.lastStep = r.step
				return nil
			}

		case <-m.handle.exited:
			// A tick delivered just before shutdown still counts.
			select {
			case r := <-m.replies:
				if r.kind == replyTick {
					m.lastStep = r.step
					return nil
				}
			default:
			}
			return ErrManagerGone

		case <-time.After(tickRecvTimeout):
		}
	}
}

// Close unregisters the member. It never fails and may be called any
// number of times; only the first call does anything.
func (m *Member) Close() {
	m.closeOnce.Do(func() {
		m.handle.Unregister(m.id)
	})
}
