// Copyright 2025 Near Private Payroll
//
// Verify API Handlers
// HTTP endpoints for verification, registry, and replay lookups

// Package server is the HTTP boundary: request validation and result
// framing for the verifier call surface. One handler-group struct per
// concern, stdlib ServeMux, JSON bodies, structured error envelopes.
package server

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/near-private-payroll/zkverifier/pkg/audit"
	"github.com/near-private-payroll/zkverifier/pkg/journal"
	"github.com/near-private-payroll/zkverifier/pkg/ledger"
	"github.com/near-private-payroll/zkverifier/pkg/verifier"
)

// VerifyHandlers provides HTTP handlers for the verifier call surface.
type VerifyHandlers struct {
	verifier   *verifier.Verifier
	store      *ledger.Store
	sink       audit.Sink
	ownerToken string
	logger     *log.Logger

	// mu serializes the verify-then-record critical section so the replay
	// ledger observes one linearized write order, matching the
	// transaction-scoped execution model the verifier assumes.
	mu sync.Mutex
}

// NewVerifyHandlers creates the handler group. ownerToken guards the
// owner-restricted endpoints (image id registration, mode switching).
func NewVerifyHandlers(v *verifier.Verifier, store *ledger.Store, sink audit.Sink, ownerToken string, logger *log.Logger) *VerifyHandlers {
	if logger == nil {
		logger = log.New(log.Writer(), "[VerifyAPI] ", log.LstdFlags)
	}
	if sink == nil {
		sink = audit.NopSink{}
	}
	return &VerifyHandlers{
		verifier:   v,
		store:      store,
		sink:       sink,
		ownerToken: ownerToken,
		logger:     logger,
	}
}

// Register wires the handler group onto mux.
func (h *VerifyHandlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/verify", h.HandleVerify)
	mux.HandleFunc("/api/v1/image-id", h.HandleRegisterImageID)
	mux.HandleFunc("/api/v1/mode", h.HandleSetMode)
	mux.HandleFunc("/api/v1/seals/", h.HandleGetSeal)
}

// verifyRequestBody is the POST /api/v1/verify request schema.
type verifyRequestBody struct {
	Family              string          `json:"family"`
	Seal                hexutil.Bytes   `json:"seal"`
	ClaimDigest         hexutil.Bytes   `json:"claim_digest"`
	Params              json.RawMessage `json:"params"`
	HistoryCommitment   hexutil.Bytes   `json:"history_commitment"`
	RequestedTTLSeconds int64           `json:"requested_ttl_seconds"`
}

// HandleVerify handles POST /api/v1/verify.
func (h *VerifyHandlers) HandleVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only POST is allowed")
		return
	}

	var body verifyRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_BODY", fmt.Sprintf("Invalid JSON body: %v", err))
		return
	}

	family, ok := parseFamily(body.Family)
	if !ok {
		h.writeError(w, http.StatusBadRequest, "INVALID_FAMILY", fmt.Sprintf("Unknown proof family: %q", body.Family))
		return
	}

	var claimDigest, commitment [32]byte
	if len(body.ClaimDigest) != 32 {
		h.writeError(w, http.StatusBadRequest, "INVALID_CLAIM_DIGEST", "claim_digest must be exactly 32 bytes")
		return
	}
	copy(claimDigest[:], body.ClaimDigest)
	if len(body.HistoryCommitment) != 32 {
		h.writeError(w, http.StatusBadRequest, "INVALID_COMMITMENT", "history_commitment must be exactly 32 bytes")
		return
	}
	copy(commitment[:], body.HistoryCommitment)

	params, err := paramsFor(family, body.Params)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_PARAMS", err.Error())
		return
	}

	req := verifier.VerifyRequest{
		Family:            family,
		SealBytes:         body.Seal,
		ClaimDigest:       claimDigest,
		Params:            params,
		HistoryCommitment: commitment,
		RequestedTTL:      time.Duration(body.RequestedTTLSeconds) * time.Second,
	}

	h.mu.Lock()
	result, failure := h.verifier.Verify(req)
	h.mu.Unlock()

	requestID := RequestIDFromContext(r.Context())
	if failure != nil {
		h.recordAudit(r, audit.Event{
			RequestID: requestID,
			Family:    family.String(),
			Outcome:   failure.Kind.String(),
			CreatedAt: time.Now().UTC(),
		})
		h.writeError(w, statusForKind(failure.Kind), failure.Kind.String(), failure.Error())
		return
	}

	sealHash := ledger.SealHashOf(body.Seal)
	h.recordAudit(r, audit.Event{
		RequestID:    requestID,
		Family:       family.String(),
		Outcome:      "Verified",
		SealHashHex:  hex.EncodeToString(sealHash[:]),
		PaymentCount: result.Journal.PaymentCount(),
		Expiry:       result.Expiry,
		CreatedAt:    time.Now().UTC(),
	})

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"family":  result.Family.String(),
		"journal": journalFields(result.Journal),
		"expiry":  result.Expiry.UTC().Format(time.RFC3339),
	})
}

// registerImageIDBody is the POST /api/v1/image-id request schema.
type registerImageIDBody struct {
	Family  string        `json:"family"`
	ImageID hexutil.Bytes `json:"image_id"`
}

// HandleRegisterImageID handles POST /api/v1/image-id. Owner-restricted.
func (h *VerifyHandlers) HandleRegisterImageID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only POST is allowed")
		return
	}
	if !h.authorizeOwner(r) {
		h.writeError(w, http.StatusForbidden, "OWNER_ONLY", "Image id registration is owner-restricted")
		return
	}

	var body registerImageIDBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_BODY", fmt.Sprintf("Invalid JSON body: %v", err))
		return
	}
	family, ok := parseFamily(body.Family)
	if !ok {
		h.writeError(w, http.StatusBadRequest, "INVALID_FAMILY", fmt.Sprintf("Unknown proof family: %q", body.Family))
		return
	}
	if len(body.ImageID) != 32 {
		h.writeError(w, http.StatusBadRequest, "INVALID_IMAGE_ID", "image_id must be exactly 32 bytes")
		return
	}
	var imageID [32]byte
	copy(imageID[:], body.ImageID)

	if err := h.store.RegisterImageID(ledger.Family(family), imageID); err != nil {
		h.logger.Printf("register image id failed: %v", err)
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to register image id")
		return
	}
	h.logger.Printf("registered image id for family=%s", family)
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"family":   family.String(),
		"image_id": hexutil.Encode(imageID[:]),
	})
}

// setModeBody is the POST /api/v1/mode request schema.
type setModeBody struct {
	Mode string `json:"mode"`
}

// HandleSetMode handles POST /api/v1/mode. Owner-restricted; switching into
// dev mode is refused once any seal record exists.
func (h *VerifyHandlers) HandleSetMode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only POST is allowed")
		return
	}
	if !h.authorizeOwner(r) {
		h.writeError(w, http.StatusForbidden, "OWNER_ONLY", "Mode switching is owner-restricted")
		return
	}

	var body setModeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_BODY", fmt.Sprintf("Invalid JSON body: %v", err))
		return
	}

	var mode verifier.Mode
	switch strings.ToLower(body.Mode) {
	case "groth16":
		mode = verifier.ModeGroth16
	case "dev":
		mode = verifier.ModeDevMode
	default:
		h.writeError(w, http.StatusBadRequest, "INVALID_MODE", `mode must be "groth16" or "dev"`)
		return
	}

	h.mu.Lock()
	err := h.verifier.SetMode(mode)
	h.mu.Unlock()
	if err != nil {
		h.writeError(w, http.StatusConflict, "DEVMODE_REFUSED", err.Error())
		return
	}
	h.logger.Printf("verification mode set to %s", body.Mode)
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"mode": strings.ToLower(body.Mode)})
}

// HandleGetSeal handles GET /api/v1/seals/{seal_hash_hex}: a read-only
// replay/expiry lookup.
func (h *VerifyHandlers) HandleGetSeal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/v1/seals/")
	hashHex := strings.TrimSuffix(path, "/")
	raw, err := hex.DecodeString(strings.TrimPrefix(hashHex, "0x"))
	if err != nil || len(raw) != 32 {
		h.writeError(w, http.StatusBadRequest, "INVALID_SEAL_HASH", "Seal hash must be 32 hex-encoded bytes")
		return
	}
	var sealHash [32]byte
	copy(sealHash[:], raw)

	record, err := h.store.GetSeal(sealHash)
	if err == ledger.ErrNotFound {
		h.writeError(w, http.StatusNotFound, "SEAL_NOT_FOUND", fmt.Sprintf("No record for seal hash %s", hashHex))
		return
	}
	if err != nil {
		h.logger.Printf("seal lookup failed: %v", err)
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to look up seal")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"seal_hash": hex.EncodeToString(sealHash[:]),
		"expiry":    record.Expiry.UTC().Format(time.RFC3339),
		"expired":   record.Expired(time.Now()),
	})
}

// recordAudit mirrors an event to the audit sink; sink errors never affect
// the HTTP response.
func (h *VerifyHandlers) recordAudit(r *http.Request, ev audit.Event) {
	if err := h.sink.RecordVerification(r.Context(), ev); err != nil {
		h.logger.Printf("audit record failed: %v", err)
	}
}

// journalFields flattens a decoded journal into the response schema. Only
// fields the journal itself declares are exposed.
func journalFields(j journal.Journal) map[string]interface{} {
	out := map[string]interface{}{
		"payment_count":      j.PaymentCount(),
		"history_commitment": func() string { c := j.HistoryCommitment(); return hexutil.Encode(c[:]) }(),
	}
	switch v := j.(type) {
	case journal.IncomeThreshold:
		out["threshold"] = v.Threshold
		out["meets"] = v.Meets
	case journal.IncomeRange:
		out["min"] = v.Min
		out["max"] = v.Max
		out["in_range"] = v.InRange
	case journal.CreditScore:
		out["threshold"] = v.Threshold
		out["meets"] = v.Meets
	}
	return out
}

// parseFamily maps the wire family name onto journal.Family.
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

// paramsFor decodes the family-specific params bag.
func paramsFor(family journal.Family, raw json.RawMessage) (journal.Params, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("params are required for family %s", family)
	}
	switch family {
	case journal.FamilyIncomeThreshold:
		var p struct {
			Threshold uint64 `json:"threshold"`
		}
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("invalid IncomeThreshold params: %w", err)
		}
		return journal.IncomeThresholdParams{Threshold: p.Threshold}, nil
	case journal.FamilyIncomeRange:
		var p struct {
			Min uint64 `json:"min"`
			Max uint64 `json:"max"`
		}
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("invalid IncomeRange params: %w", err)
		}
		return journal.IncomeRangeParams{Min: p.Min, Max: p.Max}, nil
	case journal.FamilyCreditScore:
		var p struct {
			Threshold uint32 `json:"threshold"`
		}
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("invalid CreditScore params: %w", err)
		}
		return journal.CreditScoreParams{Threshold: p.Threshold}, nil
	default:
		return nil, fmt.Errorf("no params schema registered for family %s", family)
	}
}

// statusForKind maps failure kinds to HTTP statuses. The kind string itself
// is the error code, surfaced verbatim.
func statusForKind(k verifier.Kind) int {
	switch k {
	case verifier.KindReplay:
		return http.StatusConflict
	case verifier.KindImageIdUnregistered:
		return http.StatusNotFound
	case verifier.KindProofInvalid:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

func (h *VerifyHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Printf("Error encoding response: %v", err)
	}
}

func (h *VerifyHandlers) writeError(w http.ResponseWriter, status int, code, message string) {
	h.writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
