// Package playbook matches bridge transactions against catalogued attack
// patterns.
//
// Every transaction is scored against each pattern in the catalog: a
// deterministic base confidence derived from the transaction's generic
// anomaly flags, plus a fixed bonus when the transaction carries the feature
// flag for the pattern's attack vector. Patterns above the match threshold
// are reported with a severity tier derived from the historical loss, and
// the strongest match drives the transaction's 0–10 risk score.
package playbook

import (
	"time"

	"github.com/mbd888/bridgewatch/internal/catalog"
)

// Matching constants. The bonus and threshold are part of the engine's
// published contract; changing them changes which patterns match.
const (
	VectorBonus    = 0.3 // added when the tx carries the pattern's vector flag
	MatchThreshold = 0.3 // confidence must strictly exceed this to match
	MaxRiskScore   = 10.0
)

// Transaction is the analyzer's view of a bridge transaction: a hash plus
// named boolean feature flags produced by upstream feature extraction.
// A missing flag means the feature was not observed — never an error.
type Transaction struct {
	Hash     string          `json:"hash"`
	Features map[string]bool `json:"featureFlags"`
	Metadata map[string]any  `json:"metadata,omitempty"`
}

// Flag reports whether the named feature flag is set. Nil maps are fine.
func (t *Transaction) Flag(name string) bool {
	if t == nil || t.Features == nil {
		return false
	}
	return t.Features[name]
}

// Match records one pattern that matched a transaction.
type Match struct {
	PatternName string           `json:"patternName"`
	Confidence  float64          `json:"confidence"`
	Severity    catalog.Severity `json:"severity"`
	Indicators  []string         `json:"indicators"`
}

// Alert is raised when matching crosses an alerting condition.
type Alert struct {
	Type     string           `json:"alertType"`
	Message  string           `json:"message"`
	Severity catalog.Severity `json:"severity"`
}

// AlertCriticalPatternMatch is raised when any matched pattern is critical.
const AlertCriticalPatternMatch = "critical_attack_pattern_match"

// TransactionAnalysis is the per-transaction result of a playbook run.
type TransactionAnalysis struct {
	TransactionHash string    `json:"transactionHash"`
	Timestamp       time.Time `json:"timestamp"`
	MatchedAttacks  []Match   `json:"matchedAttacks"`
	RiskScore       float64   `json:"riskScore"`
	Alerts          []Alert   `json:"alerts,omitempty"`
}
