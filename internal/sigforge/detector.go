package sigforge

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/mbd888/bridgewatch/internal/logging"
)

var hexSignatureRegex = regexp.MustCompile(`^[a-fA-F0-9]+$`)

// Detector runs the signature-forgery pipeline. Safe for concurrent use;
// the replay cache is its only mutable state.
type Detector struct {
	cache   *ReplayCache
	crypto  CryptoVerifier
	signer  SignerVerifier
	maxSkew time.Duration
	now     func() time.Time
}

// NewDetector creates a detector over the given replay cache and verifier
// delegates. Either delegate may be nil, in which case its check fails
// closed (the corresponding indicator is always raised).
func NewDetector(cache *ReplayCache, crypto CryptoVerifier, signer SignerVerifier) *Detector {
	return &Detector{
		cache:   cache,
		crypto:  crypto,
		signer:  signer,
		maxSkew: DefaultMaxSkew,
		now:     time.Now,
	}
}

// WithMaxSkew overrides the tolerated message timestamp skew.
func (d *Detector) WithMaxSkew(skew time.Duration) *Detector {
	d.maxSkew = skew
	return d
}

// WithClock overrides the time source for deterministic tests. The replay
// cache keeps its own clock; override both for full determinism.
func (d *Detector) WithClock(now func() time.Time) *Detector {
	d.now = now
	return d
}

// Cache returns the detector's replay cache.
func (d *Detector) Cache() *ReplayCache {
	return d.cache
}

// ValidateSignature runs every pipeline check over the tuple and accumulates
// forgery indicators; checks never short-circuit. Malformed input degrades
// the result, it never raises.
func (d *Detector) ValidateSignature(ctx context.Context, check SignatureCheck) *ValidationResult {
	result := &ValidationResult{
		ReuseConfidence: ReuseConfidenceFresh,
		Timestamp:       d.now(),
	}

	// 1. Format: hex, minimum length.
	if !isPlausibleSignature(check.Signature) {
		result.ForgeryIndicators = append(result.ForgeryIndicators, IndicatorInvalidFormat)
	}

	// 2. Reuse: atomic read-check-write against the replay cache. A fresh
	// sighting (or one past the window) records/reset the entry.
	if reused, _ := d.cache.Observe(check.Signature, check.Message); reused {
		result.ReuseConfidence = ReuseConfidenceSeen
		result.ForgeryIndicators = append(result.ForgeryIndicators, IndicatorReuse)
	}

	// 3. Embedded timestamp within tolerated skew. Unparseable counts as
	// manipulated, not as an error.
	if ts, ok := ExtractTimestamp(check.Message); !ok || absDuration(d.now().Sub(ts)) > d.maxSkew {
		result.ForgeryIndicators = append(result.ForgeryIndicators, IndicatorTimestamp)
	}

	// 4. Cryptographic validity via delegate; failures and errors both fail
	// closed.
	cryptoOK := false
	if d.crypto != nil {
		ok, err := d.crypto.Verify(ctx, check.Signature, check.Message, check.PublicKey)
		if err != nil {
			logging.L(ctx).Warn("crypto verifier error, treating signature as forged", "error", err)
		}
		cryptoOK = err == nil && ok
	}
	if !cryptoOK {
		result.ForgeryIndicators = append(result.ForgeryIndicators, IndicatorMalleability)
	}

	// 5. Signer match, only meaningful once crypto verification passed.
	if cryptoOK && d.signer != nil {
		ok, err := d.signer.VerifySigner(ctx, check.Signature, check.Message, check.ExpectedSigner)
		if err != nil {
			logging.L(ctx).Warn("signer verifier error, treating as mismatch", "error", err)
		}
		if err != nil || !ok {
			result.ForgeryIndicators = append(result.ForgeryIndicators, IndicatorSignerMismatch)
		}
	}

	result.ConfidenceScore = confidenceFor(len(result.ForgeryIndicators))
	result.IsValid = len(result.ForgeryIndicators) == 0 && cryptoOK

	for _, ind := range result.ForgeryIndicators {
		if rec := recommendationFor(ind); rec != "" {
			result.Recommendations = append(result.Recommendations, rec)
		}
	}

	return result
}

// BatchValidate validates each tuple independently and returns results in
// input order.
func (d *Detector) BatchValidate(ctx context.Context, checks []SignatureCheck) []*ValidationResult {
	results := make([]*ValidationResult, len(checks))
	for i, check := range checks {
		results[i] = d.ValidateSignature(ctx, check)
	}
	return results
}

// confidenceFor maps an indicator count to the result confidence:
// 0.95 minus 0.2 per indicator, floored at 0.1.
func confidenceFor(indicators int) float64 {
	score := 0.95 - 0.2*float64(indicators)
	if score < 0.1 {
		score = 0.1
	}
	return score
}

func isPlausibleSignature(sig string) bool {
	sig = strings.TrimPrefix(sig, "0x")
	return len(sig) >= MinSignatureHexLen && hexSignatureRegex.MatchString(sig)
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
