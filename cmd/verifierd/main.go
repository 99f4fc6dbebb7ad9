// Copyright 2025 Near Private Payroll
//
// Verifier Service Daemon
// Wires the replay ledger, verifier, audit sinks, and HTTP surface

// verifierd is the verification service daemon: it loads the family
// bootstrap, opens the replay ledger, and serves the verify API.
package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/near-private-payroll/zkverifier/pkg/audit"
	"github.com/near-private-payroll/zkverifier/pkg/bn254"
	"github.com/near-private-payroll/zkverifier/pkg/config"
	"github.com/near-private-payroll/zkverifier/pkg/journal"
	"github.com/near-private-payroll/zkverifier/pkg/kvdb"
	"github.com/near-private-payroll/zkverifier/pkg/ledger"
	"github.com/near-private-payroll/zkverifier/pkg/server"
	"github.com/near-private-payroll/zkverifier/pkg/verifier"
)

// MemoryKV is a simple in-memory implementation of the ledger.KV interface,
// used when LEDGER_DB_BACKEND=memdb (tests, local development).
type MemoryKV struct {
	store map[string][]byte
	mu    sync.RWMutex
}

func NewMemoryKV() *MemoryKV { return &MemoryKV{store: make(map[string][]byte)} }

func (m *MemoryKV) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if value, exists := m.store[string(key)]; exists {
		return value, nil
	}
	return nil, nil
}

func (m *MemoryKV) Set(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[string(key)] = value
	return nil
}

// HealthStatus tracks component health for the /healthz endpoint.
type HealthStatus struct {
	Status        string `json:"status"` // "ok", "degraded"
	Mode          string `json:"mode"`   // "groth16", "dev"
	Ledger        string `json:"ledger"`
	AuditDB       string `json:"audit_db"`
	Firestore     string `json:"firestore"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	startTime     time.Time
	mu            sync.RWMutex
}

func (h *HealthStatus) Set(component, status string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch component {
	case "ledger":
		h.Ledger = status
	case "audit_db":
		h.AuditDB = status
	case "firestore":
		h.Firestore = status
	case "mode":
		h.Mode = status
	}
	if h.Ledger == "open" {
		h.Status = "ok"
	} else {
		h.Status = "degraded"
	}
}

func (h *HealthStatus) ToJSON() []byte {
	h.mu.Lock()
	h.UptimeSeconds = int64(time.Since(h.startTime).Seconds())
	h.mu.Unlock()
	h.mu.RLock()
	defer h.mu.RUnlock()
	data, err := json.Marshal(h)
	if err != nil {
		return []byte(`{"status":"error"}`)
	}
	return data
}

func main() {
	showHelp := flag.Bool("help", false, "show usage and exit")
	flag.Parse()
	if *showHelp {
		printHelp()
		return
	}

	logger := log.New(os.Stdout, "[verifierd] ", log.LstdFlags)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("validate configuration: %v", err)
	}

	health := &HealthStatus{Status: "starting", Mode: "groth16", startTime: time.Now()}

	// Replay/freshness ledger backend.
	var kv ledger.KV
	var closeKV func() error
	if cfg.LedgerDBBackend == "memdb" {
		logger.Println("WARNING: using in-memory ledger backend; replay state is lost on restart")
		kv = NewMemoryKV()
		closeKV = func() error { return nil }
	} else {
		adapter, err := kvdb.Open(cfg.LedgerDBName, cfg.LedgerDBDir)
		if err != nil {
			logger.Fatalf("open ledger backend: %v", err)
		}
		kv = adapter
		closeKV = adapter.Close
	}
	store := ledger.NewStore(kv)
	health.Set("ledger", "open")

	// Family bootstrap: image ids and TTL ceilings.
	ttlCeilings := make(map[journal.Family]time.Duration)
	bootstrap, err := config.LoadFamilyBootstrap(cfg.FamilyBootstrapPath)
	if err != nil {
		logger.Fatalf("load family bootstrap: %v", err)
	}
	for _, fb := range bootstrap.Families {
		family, ok := parseFamily(fb.Family)
		if !ok {
			logger.Fatalf("family bootstrap: unknown family %q", fb.Family)
		}
		raw, err := hex.DecodeString(fb.ImageIDHex)
		if err != nil || len(raw) != 32 {
			logger.Fatalf("family bootstrap: image id for %s must be 32 hex bytes", fb.Family)
		}
		var imageID [32]byte
		copy(imageID[:], raw)
		if err := store.RegisterImageID(ledger.Family(family), imageID); err != nil {
			logger.Fatalf("family bootstrap: register image id for %s: %v", fb.Family, err)
		}
		ttlCeilings[family] = fb.TTLCeiling.Duration()
		logger.Printf("registered family=%s ttl_ceiling=%s", family, fb.TTLCeiling.Duration())
	}

	vk, err := bn254.PinnedVerificationKey()
	if err != nil {
		logger.Fatalf("load pinned verification key: %v", err)
	}

	v := verifier.New(vk, store, ttlCeilings, log.New(os.Stdout, "[Verifier] ", log.LstdFlags))
	if cfg.DevMode {
		if err := v.SetMode(verifier.ModeDevMode); err != nil {
			logger.Fatalf("enable dev mode: %v", err)
		}
		health.Set("mode", "dev")
		logger.Println("WARNING: dev mode enabled; the pairing check is bypassed")
	}

	// Audit sinks (observability only).
	ctx := context.Background()
	var sinks []audit.Sink
	if cfg.AuditDBEnabled {
		pg, err := audit.NewPostgresSink(cfg, log.New(os.Stdout, "[AuditDB] ", log.LstdFlags))
		if err != nil {
			logger.Fatalf("connect audit database: %v", err)
		}
		defer pg.Close()
		sinks = append(sinks, pg)
		health.Set("audit_db", "connected")
	} else {
		health.Set("audit_db", "disabled")
	}
	fsSink, err := audit.NewFirestoreSink(ctx, audit.FirestoreConfig{
		ProjectID:       cfg.FirebaseProjectID,
		CredentialsFile: cfg.FirebaseCredentialsFile,
		Enabled:         cfg.FirestoreEnabled,
	})
	if err != nil {
		logger.Fatalf("initialize Firestore sink: %v", err)
	}
	defer fsSink.Close()
	if fsSink.IsEnabled() {
		sinks = append(sinks, fsSink)
		health.Set("firestore", "connected")
	} else {
		health.Set("firestore", "disabled")
	}
	var sink audit.Sink = audit.NopSink{}
	if len(sinks) > 0 {
		sink = audit.NewMultiSink(logger, sinks...)
	}

	// HTTP surface.
	handlers := server.NewVerifyHandlers(v, store, sink, cfg.JWTSecret, log.New(os.Stdout, "[VerifyAPI] ", log.LstdFlags))
	mux := http.NewServeMux()
	handlers.Register(mux)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(health.ToJSON())
	})

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      server.WithRequestID(server.WithLogging(logger, mux)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		logger.Printf("listening on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Printf("received %s, shutting down", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("http shutdown: %v", err)
	}
	if err := closeKV(); err != nil {
		logger.Printf("close ledger backend: %v", err)
	}
	logger.Println("shutdown complete")
}

func parseFamily(name string) (journal.Family, bool) {
	switch name {
	case "IncomeThreshold":
		return journal.FamilyIncomeThreshold, true
	case "IncomeRange":
		return journal.FamilyIncomeRange, true
	case "CreditScore":
		return journal.FamilyCreditScore, true
	case "Payment":
		return journal.FamilyPayment, true
	case "Balance":
		return journal.FamilyBalance, true
	default:
		return 0, false
	}
}

func printHelp() {
	fmt.Println(`verifierd - Groth16/BN254 proof verification service

Configuration is environment-driven. Key variables:
  API_HOST, API_PORT          listen address (default 0.0.0.0:8080)
  LEDGER_DB_BACKEND           goleveldb (default) or memdb
  LEDGER_DB_DIR               ledger data directory (default ./data)
  FAMILY_BOOTSTRAP_PATH       families.yaml with image ids and TTL ceilings
  JWT_SECRET                  bearer token for owner-restricted endpoints
  DEV_MODE                    bypass the pairing check (never in production)
  AUDIT_DB_ENABLED, DB_*      optional Postgres audit mirror
  FIRESTORE_ENABLED, FIREBASE_PROJECT_ID
                              optional Firestore audit mirror`)
}
