package reservation

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Domain prefixes for hashed identity. The version suffix allows the
// algorithm to change without colliding with old values.
const (
	DomainCreate  = "gpures/create/v1"
	DomainResolve = "gpures/resolve/v1"
	DomainCancel  = "gpures/cancel/v1"
)

// idNamespace scopes reservation ids derived from idempotency keys.
var idNamespace = uuid.MustParse("6f1c2a9e-4b0d-4f7e-9a51-3c8d2e7b5a10")

// Request is the structured reservation request produced upstream from the
// user's free-text description.
type Request struct {
	OwnerID    string   `json:"owner_id"`
	ResourceID string   `json:"resource_id"`
	Interval   Interval `json:"interval"`
	Purpose    string   `json:"purpose"`
	Priority   int      `json:"priority,omitempty"`

	// IdempotencyKey makes retries safe. Empty means the engine generates one.
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// Validate checks field presence and interval shape. It does not consult the
// catalog or the clock.
func (r Request) Validate() error {
	var missing []string
	if strings.TrimSpace(r.OwnerID) == "" {
		missing = append(missing, "ownerId")
	}
	if strings.TrimSpace(r.ResourceID) == "" {
		missing = append(missing, "resourceId")
	}
	if r.Interval.Start.IsZero() {
		missing = append(missing, "interval.start")
	}
	if r.Interval.End.IsZero() {
		missing = append(missing, "interval.end")
	}
	if strings.TrimSpace(r.Purpose) == "" {
		missing = append(missing, "purpose")
	}
	if len(missing) > 0 {
		return NewMalformedRequestError("missing required fields: " + strings.Join(missing, ", "))
	}
	if !r.Interval.Valid() {
		return NewInvalidIntervalError(fmt.Sprintf("interval %s is empty or inverted", r.Interval))
	}
	if !r.Interval.InRange() {
		return NewInvalidIntervalError(fmt.Sprintf("interval %s is outside %s to %s", r.Interval,
			EarliestInstant.Format(time.RFC3339), LatestInstant.Format(time.RFC3339)))
	}
	return nil
}

// Fingerprint hashes the request content, excluding the idempotency key, so
// a replayed key can be checked against the original request.
func (r Request) Fingerprint() (string, error) {
	canonical, err := MarshalCanonical(map[string]any{
		"owner_id":    r.OwnerID,
		"resource_id": r.ResourceID,
		"start":       r.Interval.Start,
		"end":         r.Interval.End,
		"purpose":     r.Purpose,
		"priority":    r.Priority,
	})
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return hashWithDomain(DomainCreate, canonical), nil
}

// ResolutionFingerprint hashes a negotiation decision for idempotent replay.
func ResolutionFingerprint(reservationID string, decision Decision) (string, error) {
	canonical, err := MarshalCanonical(map[string]any{
		"reservation_id": reservationID,
		"decision":       string(decision),
	})
	if err != nil {
		return "", fmt.Errorf("resolution fingerprint: %w", err)
	}
	return hashWithDomain(DomainResolve, canonical), nil
}

// CancelFingerprint hashes a cancellation for idempotent replay.
func CancelFingerprint(reservationID string) (string, error) {
	canonical, err := MarshalCanonical(map[string]any{"reservation_id": reservationID})
	if err != nil {
		return "", fmt.Errorf("cancel fingerprint: %w", err)
	}
	return hashWithDomain(DomainCancel, canonical), nil
}

// DeriveID returns the reservation id for an (owner, idempotency key) pair.
// The same pair always yields the same id.
func DeriveID(ownerID, key string) string {
	return uuid.NewSHA1(idNamespace, []byte(ownerID+"\x00"+key)).String()
}

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
