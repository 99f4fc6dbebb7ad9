// Copyright 2025 Near Private Payroll
//
// Replay Ledger Store
// Seal records and the image-id registry over a pluggable KV

package ledger

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"
)

// KV is the minimal key-value interface the ledger is built on. Production
// wires this to a CometBFT-DB-backed adapter (pkg/kvdb); tests use an
// in-memory map.
//
// CONCURRENCY: Store assumes single-writer, transaction-scoped access.
// All mutating calls happen inside one verify call's critical section.
// Concurrent verifications of different seals never touch the same key;
// concurrent verifications of the same seal are serialized by the caller
// and the second observes the first's write.
type KV interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
}

// Store provides high-level access to the replay ledger and image-id
// registry in the KV store.
type Store struct {
	kv KV
}

// NewStore creates a new Store instance.
func NewStore(kv KV) *Store {
	return &Store{kv: kv}
}

var (
	keySealPrefix    = []byte("seal:record:")
	keySealCount     = []byte("seal:count")
	keyImageIDPrefix = []byte("imageid:family:")
)

func sealKey(sealHash [32]byte) []byte {
	return append(append([]byte{}, keySealPrefix...), sealHash[:]...)
}

func imageIDKey(family Family) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(family))
	return append(append([]byte{}, keyImageIDPrefix...), b...)
}

// sealRecordJSON is the on-the-wire encoding for a SealRecord; time.Time
// marshals to RFC3339 via encoding/json, which is sufficient precision for
// TTL comparisons at the second granularity TTLs are specified at.
type sealRecordJSON struct {
	SealHash string    `json:"sealHash"`
	Expiry   time.Time `json:"expiry"`
}

// RegisterImageID writes the image id for family. Owner-restricted at the
// caller (HTTP/RPC boundary); the store itself performs no authorization.
func (s *Store) RegisterImageID(family Family, imageID [32]byte) error {
	return s.kv.Set(imageIDKey(family), imageID[:])
}

// ImageID returns the registered image id for family, or
// ErrImageIdUnregistered if none has been registered.
func (s *Store) ImageID(family Family) ([32]byte, error) {
	var out [32]byte
	v, err := s.kv.Get(imageIDKey(family))
	if err != nil {
		return out, fmt.Errorf("ledger: read image id: %w", err)
	}
	if v == nil {
		return out, fmt.Errorf("%w: family %d", ErrImageIdUnregistered, family)
	}
	if len(v) != 32 {
		return out, fmt.Errorf("ledger: corrupt image id entry for family %d: length %d", family, len(v))
	}
	copy(out[:], v)
	return out, nil
}

// GetSeal returns the stored record for sealHash, or ErrNotFound.
func (s *Store) GetSeal(sealHash [32]byte) (SealRecord, error) {
	var out SealRecord
	v, err := s.kv.Get(sealKey(sealHash))
	if err != nil {
		return out, fmt.Errorf("ledger: read seal record: %w", err)
	}
	if v == nil {
		return out, ErrNotFound
	}
	var raw sealRecordJSON
	if err := json.Unmarshal(v, &raw); err != nil {
		return out, fmt.Errorf("ledger: corrupt seal record: %w", err)
	}
	out.SealHash = sealHash
	out.Expiry = raw.Expiry
	return out, nil
}

// CheckAndRecordSeal is the RecordSeal state of the verify state machine: if
// sealHash is already present and not expired, it returns ErrReplay without
// mutating anything. Otherwise it inserts a fresh record with
// expiry = now + ttl and bumps the seal-count counter used by the DevMode
// gate.
func (s *Store) CheckAndRecordSeal(sealHash [32]byte, now time.Time, ttl time.Duration) (time.Time, error) {
	existing, err := s.GetSeal(sealHash)
	switch {
	case err == nil:
		if !existing.Expired(now) {
			return time.Time{}, ErrReplay
		}
	case err == ErrNotFound:
		// fall through to insert
	default:
		return time.Time{}, err
	}

	expiry := now.Add(ttl)
	raw := sealRecordJSON{SealHash: fmt.Sprintf("%x", sealHash), Expiry: expiry}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("ledger: encode seal record: %w", err)
	}
	if err := s.kv.Set(sealKey(sealHash), encoded); err != nil {
		return time.Time{}, fmt.Errorf("ledger: write seal record: %w", err)
	}
	if err := s.incrementSealCount(); err != nil {
		return time.Time{}, err
	}
	return expiry, nil
}

func (s *Store) incrementSealCount() error {
	count, err := s.SealRecordCount()
	if err != nil {
		return err
	}
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, count+1)
	return s.kv.Set(keySealCount, b)
}

// SealRecordCount returns the number of seal records ever inserted. This
// backs the DevMode gate: DevMode must be refused once any
// SealRecord already exists, so production history can never be shadowed.
func (s *Store) SealRecordCount() (uint64, error) {
	v, err := s.kv.Get(keySealCount)
	if err != nil {
		return 0, fmt.Errorf("ledger: read seal count: %w", err)
	}
	if v == nil {
		return 0, nil
	}
	if len(v) != 8 {
		return 0, fmt.Errorf("ledger: corrupt seal count entry: length %d", len(v))
	}
	return binary.BigEndian.Uint64(v), nil
}
