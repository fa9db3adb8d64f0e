package events

import (
	"context"
	"sync"
	"time"
)

// AuditRecord is the structured record emitted on every state transition
// that changes ownership or lifecycle (spec §6 "Produced: Audit records").
type AuditRecord struct {
	EventType string
	At        time.Time
	Actor     string
	Resource  string
	Result    string
	Reason    string
}

// AuditSink persists or forwards audit records; MemorySink is the one
// implementation provided here, others (e.g. a compliance pipeline) can
// implement the same interface.
type AuditSink interface {
	Write(context.Context, AuditRecord) error
}

// AuditObserver turns Observer callbacks into AuditRecords and hands
// them to a sink. It is deliberately dumb: one record per callback, no
// batching, because audit correctness matters more than throughput here.
type AuditObserver struct {
	NopObserver
	sink AuditSink
}

// NewAuditObserver builds an observer that writes every lifecycle
// transition to sink.
func NewAuditObserver(sink AuditSink) *AuditObserver {
	return &AuditObserver{sink: sink}
}

func (a *AuditObserver) record(eventType, result string, p Payload) {
	_ = a.sink.Write(context.Background(), AuditRecord{
		EventType: eventType,
		At:        p.At,
		Actor:     p.SessionID,
		Resource:  p.BrowserID,
		Result:    result,
		Reason:    p.Reason,
	})
}

func (a *AuditObserver) OnBrowserCreated(p Payload)   { a.record("browser:created", "ok", p) }
func (a *AuditObserver) OnBrowserAcquired(p Payload)  { a.record("browser:acquired", "ok", p) }
func (a *AuditObserver) OnBrowserReleased(p Payload)  { a.record("browser:released", "ok", p) }
func (a *AuditObserver) OnBrowserRemoved(p Payload)   { a.record("browser:removed", "ok", p) }
func (a *AuditObserver) OnBrowserRestarted(p Payload) { a.record("browser:restarted", "ok", p) }
func (a *AuditObserver) OnBrowserRecycled(p Payload)  { a.record("browser:recycled", "ok", p) }
func (a *AuditObserver) OnPoolScaled(p Payload)       { a.record("pool:scaled", "ok", p) }
func (a *AuditObserver) OnPoolAlert(p Payload)        { a.record("pool:alert", "ok", p) }

var _ Observer = (*AuditObserver)(nil)

// MemorySink keeps the last N audit records in memory, for tests and for
// in-process inspection through Records. Write is called synchronously from
// whichever goroutine is acquiring/releasing/recycling (Observer's own
// contract), so records is guarded by mu rather than assumed single-writer.
type MemorySink struct {
	cap int

	mu      sync.Mutex
	records []AuditRecord
}

// NewMemorySink builds a bounded in-memory AuditSink.
func NewMemorySink(capacity int) *MemorySink {
	return &MemorySink{cap: capacity}
}

func (m *MemorySink) Write(_ context.Context, r AuditRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, r)
	if len(m.records) > m.cap {
		m.records = m.records[len(m.records)-m.cap:]
	}
	return nil
}

// Records returns a snapshot of the retained audit records.
func (m *MemorySink) Records() []AuditRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]AuditRecord, len(m.records))
	copy(out, m.records)
	return out
}

var _ AuditSink = (*MemorySink)(nil)
