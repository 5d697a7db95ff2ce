// Package query runs path and cycle searches against the active graph
// snapshot, applying configured bounds and recording logs, spans, metrics
// and audit events for every call.
package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/linkscope/linkscope/internal/config"
	"github.com/linkscope/linkscope/internal/graph"
	"github.com/linkscope/linkscope/internal/observability"
	"github.com/linkscope/linkscope/internal/snapshot"
)

var (
	ErrNoSnapshot   = errors.New("no snapshot loaded")
	ErrNoRepository = errors.New("no repository configured")
)

// Query kinds, used as metric labels and span names.
const (
	KindPaths          = "paths"
	KindShortest       = "shortest"
	KindLegacy         = "legacy"
	KindCycles         = "cycles"
	KindDetailedCycles = "detailed_cycles"
)

// Service answers queries against an atomically swappable snapshot.
// Queries in flight keep the snapshot they started with.
type Service struct {
	snap     atomic.Pointer[graph.Snapshot]
	loadedAt atomic.Int64

	repo    graph.Repository
	limits  config.SearchConfig
	logger  *slog.Logger
	metrics *observability.Metrics
	audit   *observability.AuditLogger

	reloads singleflight.Group

	mu      sync.RWMutex
	lastErr error
}

// Option configures a Service.
type Option func(*Service)

func WithRepository(r graph.Repository) Option {
	return func(s *Service) { s.repo = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAudit(a *observability.AuditLogger) Option {
	return func(s *Service) { s.audit = a }
}

// WithSnapshot installs an initial snapshot.
func WithSnapshot(snap *graph.Snapshot) Option {
	return func(s *Service) { s.Install(snap) }
}

// New returns a service bounded by limits.
func New(limits config.SearchConfig, opts ...Option) *Service {
	s := &Service{
		limits:  limits,
		logger:  slog.Default(),
		metrics: observability.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Limits returns the configured search bounds.
func (s *Service) Limits() config.SearchConfig {
	return s.limits
}

// Snapshot returns the active snapshot, or nil before the first load.
func (s *Service) Snapshot() *graph.Snapshot {
	return s.snap.Load()
}

// LoadedAt returns when the active snapshot was installed.
func (s *Service) LoadedAt() time.Time {
	ns := s.loadedAt.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Install makes snap the active snapshot.
func (s *Service) Install(snap *graph.Snapshot) {
	if snap == nil {
		return
	}
	now := time.Now()
	s.snap.Store(snap)
	s.loadedAt.Store(now.UnixNano())
	if s.metrics != nil {
		s.metrics.RecordSnapshot(len(snap.Nodes()), len(snap.Edges()), now)
	}
}

// Node looks up an entity in the active snapshot.
func (s *Service) Node(id string) (graph.Node, bool) {
	snap := s.snap.Load()
	if snap == nil {
		return graph.Node{}, false
	}
	return snap.Node(id)
}

// Stats summarizes the active snapshot.
func (s *Service) Stats() (graph.Stats, error) {
	snap := s.snap.Load()
	if snap == nil {
		return graph.Stats{}, ErrNoSnapshot
	}
	return snap.Stats(), nil
}

// Reload loads a fresh snapshot from the repository and installs it.
// Concurrent calls share a single load.
func (s *Service) Reload(ctx context.Context, trigger string) error {
	if s.repo == nil {
		return ErrNoRepository
	}
	_, err, shared := s.reloads.Do("reload", func() (any, error) {
		err := s.reload(ctx, trigger)
		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()
		return nil, err
	})
	if shared {
		s.logger.Debug("reload shared with concurrent caller", "trigger", trigger)
	}
	return err
}

// LastReloadError returns the outcome of the most recent reload.
func (s *Service) LastReloadError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

func (s *Service) reload(ctx context.Context, trigger string) (err error) {
	ctx, span := observability.StartReloadSpan(ctx, trigger)
	defer span.End()

	start := time.Now()
	defer func() {
		elapsed := time.Since(start)
		if s.metrics != nil {
			s.metrics.RecordReload(elapsed, err)
		}
		s.audit.LogSnapshotReload(trigger, elapsed, err)
		observability.RecordError(span, err)
	}()

	loadCtx, loadSpan := observability.StartLoadSpan(ctx, source(s.repo))
	snap, err := s.repo.LoadSnapshot(loadCtx)
	if err == nil && snap == nil {
		err = ErrNoSnapshot
	}
	observability.RecordError(loadSpan, err)
	if err == nil {
		observability.RecordSnapshotSize(loadSpan, len(snap.Nodes()), len(snap.Edges()))
	}
	loadSpan.End()
	if err != nil {
		s.logger.Error("snapshot reload failed, keeping previous snapshot", "trigger", trigger, "error", err)
		return fmt.Errorf("reload: %w", err)
	}

	prev := s.snap.Load()
	s.Install(snap)

	attrs := []any{
		"trigger", trigger,
		"nodes", len(snap.Nodes()),
		"edges", len(snap.Edges()),
		"duration", time.Since(start),
	}
	if prev != nil {
		d := snapshot.Compare(prev, snap)
		if !d.Summary.Changed() {
			s.logger.Debug("snapshot reloaded without changes", attrs...)
			return nil
		}
		attrs = append(attrs,
			"nodes_added", d.Summary.NodesAdded,
			"nodes_removed", d.Summary.NodesRemoved,
			"nodes_modified", d.Summary.NodesModified,
			"edges_added", d.Summary.EdgesAdded,
			"edges_removed", d.Summary.EdgesRemoved,
			"edges_modified", d.Summary.EdgesModified,
		)
	}
	s.logger.Info("snapshot installed", attrs...)
	return nil
}

func source(r graph.Repository) string {
	if str, ok := r.(fmt.Stringer); ok {
		return str.String()
	}
	return fmt.Sprintf("%T", r)
}

// tracked is the bookkeeping shared by every query kind.
type tracked struct {
	s      *Service
	kind   string
	id     string
	params map[string]any
	start  time.Time
	span   trace.Span
}

// begin resolves the snapshot and opens the span for one query.
func (s *Service) begin(ctx context.Context, kind string, params map[string]any, attrs ...attribute.KeyValue) (*graph.Snapshot, *tracked, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	id := uuid.NewString()
	_, span := observability.StartQuerySpan(ctx, kind, id, attrs...)
	t := &tracked{s: s, kind: kind, id: id, params: params, start: time.Now(), span: span}

	snap := s.snap.Load()
	if snap == nil {
		t.finish(0, 0, false, ErrNoSnapshot)
		return nil, nil, ErrNoSnapshot
	}
	return snap, t, nil
}

func (t *tracked) finish(results, candidates int, truncated bool, err error) {
	elapsed := time.Since(t.start)
	if err != nil {
		observability.RecordError(t.span, err)
	} else {
		observability.RecordQueryResult(t.span, results, candidates, truncated)
	}
	t.span.End()

	if t.s.metrics != nil {
		t.s.metrics.RecordQuery(t.kind, elapsed, results, truncated, err)
	}
	t.s.audit.LogQuery(t.id, t.kind, t.params, results, elapsed, err)
	t.s.logger.Debug("query finished",
		"query_id", t.id,
		"kind", t.kind,
		"results", results,
		"truncated", truncated,
		"duration", elapsed,
		"error", err,
	)
}

// clamp bounds a requested depth by the configured ceiling.
func (s *Service) clamp(kind string, depth int) int {
	clamped, lowered := s.limits.ClampDepth(depth)
	if lowered {
		s.logger.Warn("requested depth exceeds ceiling, clamping",
			"kind", kind, "requested", depth, "ceiling", clamped)
		if s.metrics != nil {
			s.metrics.RecordClamp(kind)
		}
	}
	return clamped
}
