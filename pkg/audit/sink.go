// Copyright 2025 Near Private Payroll
//
// Audit Trail Sinks

// Package audit mirrors verification outcomes to append-only audit sinks
// (Postgres, optionally Firestore) for compliance dashboards. Sinks are
// observability only: they never participate in the pass/fail decision of a
// verify call, and a sink failure never fails the call that produced the
// event.
package audit

import (
	"context"
	"log"
	"time"
)

// Event is one verification outcome. It carries the failure kind and seal
// hash but never raw seal bytes, journal contents, or scalars.
type Event struct {
	RequestID    string    `json:"requestId"`
	Family       string    `json:"family"`
	Outcome      string    `json:"outcome"` // "Verified" or a failure kind
	SealHashHex  string    `json:"sealHash,omitempty"`
	PaymentCount uint32    `json:"paymentCount,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Sink receives verification events.
type Sink interface {
	RecordVerification(ctx context.Context, ev Event) error
	Close() error
}

// NopSink discards everything; used when no audit backend is configured.
type NopSink struct{}

func (NopSink) RecordVerification(context.Context, Event) error { return nil }
func (NopSink) Close() error                                    { return nil }

// MultiSink fans one event out to several sinks. Errors are logged and
// swallowed so one slow or broken mirror cannot block the others.
type MultiSink struct {
	sinks  []Sink
	logger *log.Logger
}

// NewMultiSink combines sinks into one. A nil logger gets the default prefix.
func NewMultiSink(logger *log.Logger, sinks ...Sink) *MultiSink {
	if logger == nil {
		logger = log.New(log.Writer(), "[Audit] ", log.LstdFlags)
	}
	return &MultiSink{sinks: sinks, logger: logger}
}

func (m *MultiSink) RecordVerification(ctx context.Context, ev Event) error {
	for _, s := range m.sinks {
		if err := s.RecordVerification(ctx, ev); err != nil {
			m.logger.Printf("audit sink error (outcome=%s family=%s): %v", ev.Outcome, ev.Family, err)
		}
	}
	return nil
}

func (m *MultiSink) Close() error {
	var firstErr error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
