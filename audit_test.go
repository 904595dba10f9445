package authgate

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func collectAudit(t *testing.T, sink *ChannelSink, want int) []AuditEvent {
	t.Helper()

	events := make([]AuditEvent, 0, want)
	timeout := time.After(2 * time.Second)
	for len(events) < want {
		select {
		case e := <-sink.Events():
			events = append(events, e)
		case <-timeout:
			t.Fatalf("expected %d audit events, got %d", want, len(events))
		}
	}
	return events
}

func TestAuditSignInEvents(t *testing.T) {
	sink := NewChannelSink(16)

	cfg := DefaultConfig()
	cfg.Secret = testSecret
	cfg.Audit.Enabled = true

	h, err := New().
		WithConfig(cfg).
		WithProviders(jsmithProvider()).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(h.Close)

	signIn(t, h, map[string]string{"username": "jsmith", "password": "wrong"})
	signIn(t, h, map[string]string{"username": "jsmith", "password": "hunter2"})

	events := collectAudit(t, sink, 2)

	failure := events[0]
	if failure.EventType != "signin_failure" || failure.Success {
		t.Fatalf("unexpected first event %+v", failure)
	}
	if failure.ProviderID != "credentials" {
		t.Fatalf("expected provider id, got %q", failure.ProviderID)
	}
	if failure.Metadata["identifier"] != "jsmith" {
		t.Fatalf("expected identifier metadata, got %v", failure.Metadata)
	}
	if failure.IP == "" {
		t.Fatal("expected the client IP to be recorded")
	}

	success := events[1]
	if success.EventType != "signin_success" || !success.Success {
		t.Fatalf("unexpected second event %+v", success)
	}
	if success.UserID != "1" || success.SessionID == "" {
		t.Fatalf("expected user and session ids, got %+v", success)
	}
}

func TestAuditDisabledByDefault(t *testing.T) {
	h := newTestHandler(t, nil)
	if h.audit != nil {
		t.Fatal("expected no dispatcher when audit is disabled")
	}
	// Emitting against a nil dispatcher is a no-op, not a panic.
	h.emitAudit(context.Background(), auditEventSignOut, true, "", "", "", nil, nil)
}

func TestAuditDispatcherDropIfFull(t *testing.T) {
	block := make(chan struct{})
	sink := blockingSink{release: block}

	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	// First event occupies the worker, second fills the buffer, the rest
	// are dropped.
	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), AuditEvent{EventType: "x"})
	}
	if d.Dropped() == 0 {
		t.Fatal("expected dropped events under backpressure")
	}

	close(block)
	d.Close()
}

type blockingSink struct {
	release chan struct{}
}

func (s blockingSink) Emit(ctx context.Context, event AuditEvent) {
	<-s.release
}

func TestJSONWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), AuditEvent{
		Timestamp: time.Now(),
		EventType: "signin_success",
		UserID:    "1",
		Success:   true,
	})
	sink.Emit(context.Background(), AuditEvent{
		Timestamp: time.Now(),
		EventType: "signout",
		Success:   true,
	})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}

	var decoded AuditEvent
	if err := json.Unmarshal([]byte(lines[0]), &decoded); err != nil {
		t.Fatalf("decode line: %v", err)
	}
	if decoded.EventType != "signin_success" || decoded.UserID != "1" {
		t.Fatalf("unexpected event %+v", decoded)
	}
}

func TestMetricsCounters(t *testing.T) {
	h := newTestHandler(t, func(cfg *Config) {
		cfg.Metrics.Enabled = true
	})

	signIn(t, h, map[string]string{"username": "jsmith", "password": "wrong"})
	signIn(t, h, map[string]string{"username": "jsmith", "password": "hunter2"})

	snap := h.MetricsSnapshot()
	if snap.Counters[MetricSignInFailure] != 1 {
		t.Fatalf("expected 1 failure, got %d", snap.Counters[MetricSignInFailure])
	}
	if snap.Counters[MetricSignInSuccess] != 1 {
		t.Fatalf("expected 1 success, got %d", snap.Counters[MetricSignInSuccess])
	}
	if snap.Counters[MetricSessionCreated] != 1 {
		t.Fatalf("expected 1 session created, got %d", snap.Counters[MetricSessionCreated])
	}
	if snap.Counters[MetricCSRFIssued] != 2 {
		t.Fatalf("expected 2 csrf issues, got %d", snap.Counters[MetricCSRFIssued])
	}
}

func TestMetricsDisabled(t *testing.T) {
	h := newTestHandler(t, nil)

	signIn(t, h, map[string]string{"username": "jsmith", "password": "hunter2"})

	snap := h.MetricsSnapshot()
	if len(snap.Counters) != 0 {
		t.Fatalf("expected an empty snapshot when disabled, got %v", snap.Counters)
	}
}
