// Copyright 2025 Near Private Payroll
//
// Firestore Audit Mirror
// Firebase Admin SDK client for realtime verification dashboards

package audit

import (
	"context"
	"fmt"
	"log"

	gcpfirestore "cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
)

// verificationEventsCollection is the Firestore collection the sink writes
// to. Documents are keyed by request id so dashboards can join against the
// Postgres trail.
const verificationEventsCollection = "verification_events"

// FirestoreSink mirrors verification events to Firestore for realtime
// dashboards. When disabled, every operation is a no-op.
type FirestoreSink struct {
	firestore *gcpfirestore.Client
	projectID string
	logger    *log.Logger
	enabled   bool
}

// FirestoreConfig holds configuration for the Firestore sink.
type FirestoreConfig struct {
	ProjectID       string
	CredentialsFile string
	Enabled         bool
	Logger          *log.Logger
}

// NewFirestoreSink creates a Firestore-backed sink. With Enabled=false a
// no-op sink is returned, so local deployments need no Firebase project.
func NewFirestoreSink(ctx context.Context, cfg FirestoreConfig) (*FirestoreSink, error) {
	if cfg.Logger == nil {
		cfg.Logger = log.New(log.Writer(), "[AuditFirestore] ", log.LstdFlags)
	}

	sink := &FirestoreSink{projectID: cfg.ProjectID, logger: cfg.Logger, enabled: cfg.Enabled}
	if !cfg.Enabled {
		cfg.Logger.Println("Firestore audit mirror is DISABLED - running in no-op mode")
		return sink, nil
	}

	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("audit: FIREBASE_PROJECT_ID is required when Firestore is enabled")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("audit: initialize Firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("audit: initialize Firestore client: %w", err)
	}
	sink.firestore = client

	cfg.Logger.Printf("Firestore audit mirror enabled (project=%s)", cfg.ProjectID)
	return sink, nil
}

// IsEnabled reports whether writes actually reach Firestore.
func (s *FirestoreSink) IsEnabled() bool { return s.enabled }

// RecordVerification writes one event document.
func (s *FirestoreSink) RecordVerification(ctx context.Context, ev Event) error {
	if !s.enabled {
		return nil
	}
	col := s.firestore.Collection(verificationEventsCollection)
	doc := col.NewDoc()
	if ev.RequestID != "" {
		doc = col.Doc(ev.RequestID)
	}
	_, err := doc.Set(ctx, ev)
	if err != nil {
		return fmt.Errorf("audit: write Firestore event: %w", err)
	}
	return nil
}

// Close releases the Firestore client.
func (s *FirestoreSink) Close() error {
	if s.firestore == nil {
		return nil
	}
	return s.firestore.Close()
}
