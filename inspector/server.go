package inspector

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/tedsuo/ifrit"

	"metronome"
	"metronome/internal/telemetry"
)

const shutdownGrace = 5 * time.Second

// NewServer returns an ifrit.Runner serving the debug endpoints for one
// manager: /healthz, /snapshot (JSON registry) and /metrics (prometheus).
func NewServer(address string, handle metronome.Handle) ifrit.Runner {
	return &debugServer{address: address, handle: handle}
}

type debugServer struct {
	address string
	handle  metronome.Handle
}

func (s *debugServer) Run(signals <-chan os.Signal, ready chan<- struct{}) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.healthz)
	mux.HandleFunc("/snapshot", s.snapshot)
	mux.Handle("/metrics", telemetry.Handler())

	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	server := &http.Server{Handler: mux}

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.Serve(listener)
	}()

	close(ready)

	select {
	case err = <-serverErrChan:
		return err

	case sig := <-signals:
		if sig == os.Kill {
			return server.Close()
		}
		ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return server.Shutdown(ctx)
	}
}

func (s *debugServer) healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *debugServer) snapshot(w http.ResponseWriter, _ *http.Request) {
	snap, err := s.handle.Snapshot()
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	data, err := json.Marshal(snap)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}
