// Package sigforge validates bridge message signatures against forgery
// indicators.
//
// Each (signature, message, public key, expected signer) tuple runs through
// a fixed pipeline: format check, replay-cache reuse check, embedded
// timestamp check, cryptographic verification, and signer matching. Checks
// never short-circuit — every failed check adds a named forgery indicator,
// and the indicator count drives the final confidence score. The replay
// cache is the engine's only shared mutable state; its read-check-write
// sequence is serialized per key so concurrent sightings of the same pair
// resolve to exactly one first sighting.
package sigforge

import (
	"context"
	"time"
)

// Forgery indicators produced by the validation pipeline.
const (
	IndicatorInvalidFormat  = "invalid_signature_format"
	IndicatorReuse          = "signature_reuse"
	IndicatorTimestamp      = "timestamp_manipulation"
	IndicatorMalleability   = "signature_malleability" // crypto verification failed
	IndicatorSignerMismatch = "signer_mismatch"
)

// Pipeline constants.
const (
	// MinSignatureHexLen is the minimum hex length of a plausible signature.
	MinSignatureHexLen = 128
	// DefaultReplayWindow is how long a repeated (signature, message) pair
	// counts as suspicious reuse.
	DefaultReplayWindow = time.Hour
	// DefaultMaxSkew is the tolerated distance between a message's embedded
	// timestamp and the local clock.
	DefaultMaxSkew = 5 * time.Minute

	// Reuse confidences reported for the replay check outcome.
	ReuseConfidenceSeen  = 0.8
	ReuseConfidenceFresh = 0.1
)

// SignatureCheck is one tuple submitted for validation.
type SignatureCheck struct {
	Signature      string `json:"signature"`
	Message        string `json:"message"`
	PublicKey      string `json:"publicKey"`
	ExpectedSigner string `json:"expectedSigner"`
}

// ValidationResult is the outcome of validating one signature tuple.
type ValidationResult struct {
	IsValid           bool      `json:"isValid"`
	ConfidenceScore   float64   `json:"confidenceScore"`
	ReuseConfidence   float64   `json:"reuseConfidence"`
	ForgeryIndicators []string  `json:"forgeryIndicators"`
	Recommendations   []string  `json:"recommendations,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
}

// CryptoVerifier checks that a signature is cryptographically valid for a
// message and public key. Implementations may be I/O-bound; errors are
// treated as verification failure (fail closed), never as valid.
type CryptoVerifier interface {
	Verify(ctx context.Context, signature, message, publicKey string) (bool, error)
}

// SignerVerifier checks that the signature over the message was produced by
// the expected signer. Only consulted after crypto verification passes.
type SignerVerifier interface {
	VerifySigner(ctx context.Context, signature, message, expectedSigner string) (bool, error)
}

// recommendationFor maps each indicator to the operator guidance attached
// to results that carry it.
func recommendationFor(indicator string) string {
	switch indicator {
	case IndicatorInvalidFormat:
		return "Reject the message; the signature is not well-formed"
	case IndicatorReuse:
		return "Investigate signature replay; require fresh nonces per message"
	case IndicatorTimestamp:
		return "Reject stale or future-dated messages; tighten clock skew tolerance"
	case IndicatorMalleability:
		return "Verify the signing key has not been compromised and rotate if in doubt"
	case IndicatorSignerMismatch:
		return "Confirm the authorized signer set; the recovered signer is not the expected one"
	default:
		return ""
	}
}
