package observability

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// AuditEventType categorizes audit events.
type AuditEventType string

const (
	AuditEventSnapshotLoad   AuditEventType = "snapshot.load"
	AuditEventSnapshotImport AuditEventType = "snapshot.import"
	AuditEventSnapshotReload AuditEventType = "snapshot.reload"
	AuditEventQuery          AuditEventType = "query"
)

// AuditEvent is a single line of the audit trail.
type AuditEvent struct {
	Timestamp   time.Time      `json:"timestamp"`
	EventType   AuditEventType `json:"event_type"`
	SessionID   string         `json:"session_id"`
	QueryID     string         `json:"query_id,omitempty"`
	Success     bool           `json:"success"`
	DurationMS  int64          `json:"duration_ms,omitempty"`
	Message     string         `json:"message,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
	ErrorDetail string         `json:"error_detail,omitempty"`
}

// AuditConfig configures the audit logger.
type AuditConfig struct {
	Enabled    bool
	OutputPath string // File path or "stdout"/"stderr"
	SessionID  string
}

// AuditLogger appends JSON lines describing snapshot and query activity.
// A nil or disabled logger drops every event.
type AuditLogger struct {
	mu        sync.Mutex
	writer    io.Writer
	sessionID string
	enabled   bool
}

// NewAuditLogger opens the configured output. A nil config or a disabled
// one yields a logger that writes nothing.
func NewAuditLogger(cfg *AuditConfig) (*AuditLogger, error) {
	if cfg == nil || !cfg.Enabled {
		return &AuditLogger{}, nil
	}

	var writer io.Writer
	switch cfg.OutputPath {
	case "stdout", "":
		writer = os.Stdout
	case "stderr":
		writer = os.Stderr
	default:
		f, err := os.OpenFile(cfg.OutputPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open audit log: %w", err)
		}
		writer = f
	}

	return NewAuditWriter(writer, cfg.SessionID), nil
}

// NewAuditWriter returns an enabled logger writing to w.
func NewAuditWriter(w io.Writer, sessionID string) *AuditLogger {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	return &AuditLogger{writer: w, sessionID: sessionID, enabled: true}
}

// SessionID identifies this process run in every event.
func (l *AuditLogger) SessionID() string {
	if l == nil {
		return ""
	}
	return l.sessionID
}

// Log writes an audit event.
func (l *AuditLogger) Log(event *AuditEvent) error {
	if l == nil || !l.enabled {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.SessionID == "" {
		event.SessionID = l.sessionID
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	_, err = fmt.Fprintf(l.writer, "%s\n", data)
	return err
}

func outcome(event *AuditEvent, err error) *AuditEvent {
	event.Success = err == nil
	if err != nil {
		event.ErrorDetail = err.Error()
	}
	return event
}

// LogSnapshotLoad records a snapshot read from source.
func (l *AuditLogger) LogSnapshotLoad(source string, nodes, edges int, duration time.Duration, err error) {
	l.Log(outcome(&AuditEvent{
		EventType:  AuditEventSnapshotLoad,
		DurationMS: duration.Milliseconds(),
		Message:    fmt.Sprintf("Loaded snapshot from %s", source),
		Details:    map[string]any{"source": source, "nodes": nodes, "edges": edges},
	}, err))
}

// LogSnapshotImport records a snapshot written to target.
func (l *AuditLogger) LogSnapshotImport(target string, nodes, edges int, duration time.Duration, err error) {
	l.Log(outcome(&AuditEvent{
		EventType:  AuditEventSnapshotImport,
		DurationMS: duration.Milliseconds(),
		Message:    fmt.Sprintf("Imported snapshot into %s", target),
		Details:    map[string]any{"target": target, "nodes": nodes, "edges": edges},
	}, err))
}

// LogSnapshotReload records a snapshot swap.
func (l *AuditLogger) LogSnapshotReload(trigger string, duration time.Duration, err error) {
	l.Log(outcome(&AuditEvent{
		EventType:  AuditEventSnapshotReload,
		DurationMS: duration.Milliseconds(),
		Message:    fmt.Sprintf("Snapshot reload (%s)", trigger),
		Details:    map[string]any{"trigger": trigger},
	}, err))
}

// LogQuery records a finished query with its parameters.
func (l *AuditLogger) LogQuery(queryID, kind string, params map[string]any, results int, duration time.Duration, err error) {
	details := map[string]any{"kind": kind, "results": results}
	for k, v := range params {
		details[k] = v
	}
	l.Log(outcome(&AuditEvent{
		EventType:  AuditEventQuery,
		QueryID:    queryID,
		DurationMS: duration.Milliseconds(),
		Message:    fmt.Sprintf("%s query", kind),
		Details:    details,
	}, err))
}

// Close closes the audit logger (if using a file).
func (l *AuditLogger) Close() error {
	if l == nil {
		return nil
	}
	if closer, ok := l.writer.(io.Closer); ok {
		if closer != os.Stdout && closer != os.Stderr {
			return closer.Close()
		}
	}
	return nil
}
