package shutdown

import (
	"context"
	"sync"
)

// fakeServer is a minimal Server implementation for exercising Manager
// without a real network listener.
type fakeServer struct {
	mu sync.Mutex

	name       string
	waitForCtx bool

	serveErr    error
	gracefulErr error

	forceStopped  bool
	preStopCalled bool
}

func newFakeServer(name string) *fakeServer {
	return &fakeServer{name: name}
}

func (s *fakeServer) Name() string { return s.name }

func (s *fakeServer) Serve(ctx context.Context) error {
	if s.waitForCtx {
		<-ctx.Done()
		return ctx.Err()
	}
	return s.serveErr
}

func (s *fakeServer) GracefulStopWithTimeout(ctx context.Context) error {
	return s.gracefulErr
}

func (s *fakeServer) ForceStop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forceStopped = true
}

// PreStop satisfies PreStopper so tests can assert the manager invokes it
// before the graceful-stop grace period starts.
func (s *fakeServer) PreStop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.preStopCalled = true
}

func (s *fakeServer) wasForceStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.forceStopped
}

func (s *fakeServer) wasPreStopCalled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.preStopCalled
}
