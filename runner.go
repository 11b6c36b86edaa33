package metronome

import (
	"os"

	"github.com/tedsuo/ifrit"
)

/*
NewRunner wraps a Manager in an ifrit.Runner so the barrier can be
supervised alongside the processes it paces. The coordination loop starts
when the runner is invoked and the runner becomes ready immediately after;
the returned Handle must not be used before then. Any signal stops the
manager and waits for the loop to exit.
*/
func NewRunner(cfg Config) (ifrit.Runner, Handle) {
	m := newManager(cfg)
	return managerRunner{manager: m}, m.Handle()
}

type managerRunner struct {
	manager *Manager
}

func (r managerRunner) Run(signals <-chan os.Signal, ready chan<- struct{}) error {
	r.manager.start()
	close(ready)

	<-signals
	r.manager.Stop()
	return nil
}
