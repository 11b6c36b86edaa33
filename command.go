package metronome

// commands carried from client goroutines into the coordination loop

type command interface{}

type registerCommand struct {
	speedFactor int
	replies     chan<- reply
}

type unregisterCommand struct {
	id MemberID
}

type setStateCommand struct {
	id    MemberID
	state MemberState
}

type snapshotCommand struct {
	result chan<- Snapshot
}

type shutdownCommand struct{}

// replies flow the other way, over each member's private channel

type replyKind int

const (
	replySelfID replyKind = iota
	replyTick
)

type reply struct {
	kind replyKind
	id   MemberID
	step uint64
}

/*
A Handle lets any goroutine submit commands to a Manager's coordination
loop. It is a small value type; copy it freely across goroutines. All
operations are best-effort once the manager has shut down: they become
silent no-ops rather than blocking or panicking.
*/
type Handle struct {
	commands chan<- command
	exited   <-chan struct{}
}

// send queues a command, reporting false if the manager has shut down.
func (h Handle) send(c command) bool {
	select {
	case h.commands <- c:
		return true
	case <-h.exited:
		return false
	}
}

// Unregister removes a member from the registry. Unknown ids are ignored.
func (h Handle) Unregister(id MemberID) {
	h.send(unregisterCommand{id: id})
}

// SetMemberState declares a member's state. Unknown ids are ignored.
func (h Handle) SetMemberState(id MemberID, state MemberState) {
	h.send(setStateCommand{id: id, state: state})
}

// Shutdown asks the coordination loop to terminate. It does not wait for
// the loop to exit; use Manager.Stop for that.
func (h Handle) Shutdown() {
	h.send(shutdownCommand{})
}

// Snapshot asks the coordination loop for a copy of its registry.
func (h Handle) Snapshot() (Snapshot, error) {
	result := make(chan Snapshot, 1)
	if !h.send(snapshotCommand{result: result}) {
		return Snapshot{}, ErrManagerGone
	}
	select {
	case snap := <-result:
		return snap, nil
	case <-h.exited:
		return Snapshot{}, ErrManagerGone
	}
}
