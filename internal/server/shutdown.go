package server

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"
)

// Hook priorities; lower runs first.
const (
	PriorityHTTP       = 10
	PriorityTracing    = 80
	PriorityRepository = 90
	PriorityAudit      = 95
)

// ShutdownHook is a function called during shutdown.
type ShutdownHook struct {
	Name     string
	Priority int
	Fn       func(ctx context.Context) error
}

// ShutdownHandler cancels a root context on SIGINT/SIGTERM (or a manual
// Shutdown) and then runs the registered hooks in priority order.
type ShutdownHandler struct {
	mu      sync.Mutex
	hooks   []ShutdownHook
	timeout time.Duration
	signals []os.Signal
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// NewShutdownHandler creates a handler whose hooks share timeout. A zero
// timeout selects 30s.
func NewShutdownHandler(timeout time.Duration, logger *slog.Logger) *ShutdownHandler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &ShutdownHandler{
		timeout: timeout,
		signals: []os.Signal{syscall.SIGTERM, syscall.SIGINT},
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

// Context is cancelled as soon as shutdown begins.
func (s *ShutdownHandler) Context() context.Context {
	return s.ctx
}

// RegisterHook adds a shutdown hook.
func (s *ShutdownHandler) RegisterHook(name string, priority int, fn func(ctx context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, ShutdownHook{Name: name, Priority: priority, Fn: fn})
	sort.SliceStable(s.hooks, func(i, j int) bool { return s.hooks[i].Priority < s.hooks[j].Priority })
}

// Start begins listening for shutdown signals.
func (s *ShutdownHandler) Start() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, s.signals...)

	go func() {
		defer signal.Stop(sigCh)
		select {
		case sig := <-sigCh:
			s.logger.Info("shutdown signal received", "signal", sig.String())
			s.Shutdown()
		case <-s.ctx.Done():
		}
	}()
}

// Shutdown cancels the root context and runs the hooks once. It returns
// after every hook has finished or the timeout has passed.
func (s *ShutdownHandler) Shutdown() {
	s.once.Do(func() {
		s.cancel()
		s.run()
		close(s.done)
	})
	<-s.done
}

// Wait blocks until shutdown is complete.
func (s *ShutdownHandler) Wait() {
	<-s.done
}

// Done returns a channel that closes when shutdown is complete.
func (s *ShutdownHandler) Done() <-chan struct{} {
	return s.done
}

func (s *ShutdownHandler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	s.mu.Lock()
	hooks := make([]ShutdownHook, len(s.hooks))
	copy(hooks, s.hooks)
	s.mu.Unlock()

	for _, hook := range hooks {
		if err := hook.Fn(ctx); err != nil {
			s.logger.Warn("shutdown hook failed", "hook", hook.Name, "error", err)
			continue
		}
		s.logger.Debug("shutdown hook done", "hook", hook.Name)
	}
}
