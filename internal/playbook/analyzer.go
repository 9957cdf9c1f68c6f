package playbook

import (
	"fmt"
	"time"

	"github.com/mbd888/bridgewatch/internal/catalog"
)

// Analyzer matches transactions against a catalog of attack patterns.
// Pure in-memory computation; safe for concurrent use.
type Analyzer struct {
	catalog *catalog.Catalog
	scorer  FeatureScorer
	now     func() time.Time
}

// NewAnalyzer creates an analyzer over the given catalog with the default
// deterministic anomaly scorer.
func NewAnalyzer(cat *catalog.Catalog) *Analyzer {
	return &Analyzer{
		catalog: cat,
		scorer:  NewAnomalyScorer(),
		now:     time.Now,
	}
}

// WithScorer overrides the feature scoring strategy.
func (a *Analyzer) WithScorer(s FeatureScorer) *Analyzer {
	a.scorer = s
	return a
}

// WithClock overrides the time source for deterministic tests.
func (a *Analyzer) WithClock(now func() time.Time) *Analyzer {
	a.now = now
	return a
}

// Analyze scores a transaction against every catalogued pattern.
// A nil or flag-less transaction is analyzed as "no features observed".
func (a *Analyzer) Analyze(tx *Transaction) *TransactionAnalysis {
	var hash string
	var features map[string]bool
	if tx != nil {
		hash = tx.Hash
		features = tx.Features
	}

	result := &TransactionAnalysis{
		TransactionHash: hash,
		Timestamp:       a.now(),
	}

	base := clamp(a.scorer.BaseScore(features), BaseScoreMin, BaseScoreMax)

	var maxConfidence float64
	var criticalMatches int

	for _, pattern := range a.catalog.Patterns() {
		confidence := base
		if flag := pattern.Vector.FeatureFlag(); flag != "" && features[flag] {
			confidence += VectorBonus
		}
		confidence = clamp(confidence, 0.0, 1.0)

		// Strictly above threshold; a combined confidence of exactly 0.3
		// is not a match.
		if confidence <= MatchThreshold {
			continue
		}

		indicators := make([]string, len(pattern.Indicators))
		copy(indicators, pattern.Indicators)

		severity := pattern.Severity()
		result.MatchedAttacks = append(result.MatchedAttacks, Match{
			PatternName: pattern.Name,
			Confidence:  confidence,
			Severity:    severity,
			Indicators:  indicators,
		})

		if confidence > maxConfidence {
			maxConfidence = confidence
		}
		if severity == catalog.SeverityCritical {
			criticalMatches++
		}
	}

	if len(result.MatchedAttacks) > 0 {
		result.RiskScore = clamp(maxConfidence*10, 0, MaxRiskScore)
	}

	if criticalMatches > 0 {
		result.Alerts = append(result.Alerts, Alert{
			Type:     AlertCriticalPatternMatch,
			Message:  fmt.Sprintf("%d critical attack pattern(s) matched", criticalMatches),
			Severity: catalog.SeverityCritical,
		})
	}

	return result
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
