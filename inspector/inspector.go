/*
Package inspector provides ifrit runners for observing a live barrier:
a signal-triggered snapshot dump and an HTTP debug server.
*/
package inspector

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"metronome"
)

const signalBufferSize = 1024

/*
An Inspector is an ifrit.Runner that writes a JSON snapshot of the
manager's registry to Path whenever one of the configured OS signals
arrives. Receiving one of those signals through ifrit writes a final
snapshot and exits; any other ifrit signal just exits.
*/
type Inspector struct {
	Handle  metronome.Handle
	Path    string
	Signals []os.Signal
	Logger  *zap.Logger
}

// New configures an Inspector. With no signals given it listens for
// SIGUSR2.
func New(handle metronome.Handle, path string, signals ...os.Signal) Inspector {
	if len(signals) == 0 {
		signals = []os.Signal{syscall.SIGUSR2}
	}
	return Inspector{
		Handle:  handle,
		Path:    path,
		Signals: signals,
		Logger:  zap.NewNop(),
	}
}

func (i Inspector) Run(signals <-chan os.Signal, ready chan<- struct{}) error {
	if i.Logger == nil {
		i.Logger = zap.NewNop()
	}

	osSignals := make(chan os.Signal, signalBufferSize)
	signal.Notify(osSignals, i.Signals...)
	defer signal.Stop(osSignals)

	close(ready)

	for {
		select {
		case sig := <-signals:
			for _, dump := range i.Signals {
				if sig == dump {
					i.writeSnapshot()
					break
				}
			}
			return nil

		case <-osSignals:
			i.writeSnapshot()
		}
	}
}

func (i Inspector) writeSnapshot() {
	snap, err := i.Handle.Snapshot()
	if err != nil {
		i.Logger.Warn("snapshot unavailable", zap.Error(err))
		return
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		i.Logger.Warn("failed to encode snapshot", zap.Error(err))
		return
	}

	if err := os.WriteFile(i.Path, data, 0644); err != nil {
		i.Logger.Warn("failed to write snapshot",
			zap.String("path", i.Path), zap.Error(err))
		return
	}

	i.Logger.Info("wrote snapshot", zap.String("path", i.Path))
}
