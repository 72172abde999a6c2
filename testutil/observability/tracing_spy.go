package observability

import (
	"context"
	"sync"

	"github.com/openshelf/circulation-go/inventory/postgresengine"
)

// SpanSpy is a recorded span that captures status and attribute updates.
type SpanSpy struct {
	mu         sync.Mutex
	status     string
	attributes map[string]string
}

// SetStatus implements the SpanContext interface.
func (s *SpanSpy) SetStatus(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status = status
}

// AddAttribute implements the SpanContext interface.
func (s *SpanSpy) AddAttribute(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.attributes == nil {
		s.attributes = make(map[string]string)
	}

	s.attributes[key] = value
}

// Status returns the span's final status.
func (s *SpanSpy) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.status
}

// Attributes returns a copy of the span's attributes.
func (s *SpanSpy) Attributes() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return copyLabels(s.attributes)
}

// SpanRecord is one captured span lifecycle.
type SpanRecord struct {
	Name            string
	StartAttributes map[string]string
	FinishStatus    string
	Span            *SpanSpy
}

// TracingCollectorSpy captures tracing calls for inspection in tests.
type TracingCollectorSpy struct {
	mu    sync.Mutex
	spans []SpanRecord
}

// NewTracingCollectorSpy creates an empty TracingCollectorSpy.
func NewTracingCollectorSpy() *TracingCollectorSpy {
	return &TracingCollectorSpy{}
}

// StartSpan implements the TracingCollector interface.
func (s *TracingCollectorSpy) StartSpan(
	ctx context.Context,
	name string,
	attrs map[string]string,
) (context.Context, postgresengine.SpanContext) {

	s.mu.Lock()
	defer s.mu.Unlock()

	span := &SpanSpy{attributes: make(map[string]string)}
	s.spans = append(s.spans, SpanRecord{
		Name:            name,
		StartAttributes: copyLabels(attrs),
		Span:            span,
	})

	return ctx, span
}

// FinishSpan implements the TracingCollector interface.
func (s *TracingCollectorSpy) FinishSpan(spanCtx postgresengine.SpanContext, status string, _ map[string]string) {
	span, ok := spanCtx.(*SpanSpy)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.spans {
		if s.spans[i].Span == span {
			s.spans[i].FinishStatus = status
			break
		}
	}
}

// SpanRecords returns a copy of all captured spans.
func (s *TracingCollectorSpy) SpanRecords() []SpanRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]SpanRecord, len(s.spans))
	copy(records, s.spans)

	return records
}

// HasSpan reports whether a span with the given name finished with the given
// status.
func (s *TracingCollectorSpy) HasSpan(name, status string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, record := range s.spans {
		if record.Name == name && record.FinishStatus == status {
			return true
		}
	}

	return false
}

// Reset clears all captured spans.
func (s *TracingCollectorSpy) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.spans = s.spans[:0]
}
