// Package monitor orchestrates bridge security scans.
//
// A scan runs a batch of bridge transactions through the attack-playbook
// analyzer and their attached signatures through the forgery detector, then
// combines the attack-risk average with the signature-forgery average into a
// bridge-level risk score and level, and raises alerts for critical findings.
// Individual malformed transactions degrade their own report and are excluded
// from aggregates; they never fail the scan.
package monitor

import (
	"context"
	"time"

	"github.com/mbd888/bridgewatch/internal/playbook"
	"github.com/mbd888/bridgewatch/internal/sigforge"
)

// RiskLevel classifies a bridge-level risk score.
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "low"
	RiskLevelMedium   RiskLevel = "medium"
	RiskLevelHigh     RiskLevel = "high"
	RiskLevelCritical RiskLevel = "critical"
)

// Risk-level thresholds over the 0-10 scan risk score.
const (
	CriticalRiskScore = 7.0
	HighRiskScore     = 4.0
	MediumRiskScore   = 2.0
)

// RiskLevelFor maps a 0-10 risk score to its level.
func RiskLevelFor(score float64) RiskLevel {
	switch {
	case score >= CriticalRiskScore:
		return RiskLevelCritical
	case score >= HighRiskScore:
		return RiskLevelHigh
	case score >= MediumRiskScore:
		return RiskLevelMedium
	default:
		return RiskLevelLow
	}
}

// Alert types raised by a scan.
const (
	AlertCriticalThreat  = "critical_security_threat"
	AlertPatternDetected = "attack_pattern_detected"
)

// ErrorAnalysisFailed marks a transaction report whose analysis panicked.
const ErrorAnalysisFailed = "analysis_error"

// SignatureInput is an optional signature tuple attached to a scanned
// transaction.
type SignatureInput struct {
	Signature      string `json:"signature"`
	Message        string `json:"message"`
	PublicKey      string `json:"publicKey,omitempty"`
	ExpectedSigner string `json:"expectedSigner,omitempty"`
}

// TransactionInput is one transaction submitted for scanning. A transaction
// may carry any number of signatures (multi-sig bridges attach one per
// validator); each is validated independently.
type TransactionInput struct {
	Hash       string           `json:"hash"`
	Features   map[string]bool  `json:"featureFlags,omitempty"`
	Metadata   map[string]any   `json:"metadata,omitempty"`
	Signatures []SignatureInput `json:"signatures,omitempty"`
}

// TxReport is the per-transaction outcome within a scan. Signature results
// come back in the order the signatures were submitted. Error carries the
// analysis_error marker when the item's analysis failed; such reports are
// excluded from scan aggregates.
type TxReport struct {
	Hash       string                        `json:"hash"`
	Analysis   *playbook.TransactionAnalysis `json:"analysis,omitempty"`
	Signatures []*sigforge.ValidationResult  `json:"signatureValidations,omitempty"`
	Error      string                        `json:"error,omitempty"`
}

// Alert is a scan-level security alert.
type Alert struct {
	ID              string    `json:"id"`
	ScanID          string    `json:"scanId"`
	Type            string    `json:"alertType"`
	Severity        string    `json:"severity"`
	Message         string    `json:"message"`
	BridgeAddress   string    `json:"bridgeAddress"`
	TransactionHash string    `json:"transactionHash,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Summary aggregates scan counts for dashboards. HighRiskTransactions counts
// reports with an attack risk score of 7 or above; CriticalMatches counts
// matched patterns of critical severity across the batch.
type Summary struct {
	TransactionsScanned  int `json:"transactionsScanned"`
	TransactionsFailed   int `json:"transactionsFailed"`
	PatternsMatched      int `json:"patternsMatched"`
	HighRiskTransactions int `json:"highRiskTransactions"`
	CriticalMatches      int `json:"criticalMatches"`
	SignaturesChecked    int `json:"signaturesChecked"`
	SignaturesFlagged    int `json:"signaturesFlagged"`
	AlertsRaised         int `json:"alertsRaised"`
}

// ScanResult is the full outcome of one bridge scan.
type ScanResult struct {
	ID               string      `json:"id"`
	BridgeAddress    string      `json:"bridgeAddress"`
	Network          string      `json:"network"`
	StartedAt        time.Time   `json:"startedAt"`
	CompletedAt      time.Time   `json:"completedAt"`
	Transactions     []*TxReport `json:"transactions"`
	OverallRiskScore float64     `json:"overallRiskScore"`
	RiskLevel        RiskLevel   `json:"riskLevel"`
	Alerts           []*Alert    `json:"alerts,omitempty"`
	Recommendations  []string    `json:"recommendations"`
	Summary          Summary     `json:"summary"`
}

// Store persists scan results for the history API. The engine itself never
// persists; callers own storage.
type Store interface {
	RecordScan(ctx context.Context, result *ScanResult) error
	GetScan(ctx context.Context, id string) (*ScanResult, error)
	ListByBridge(ctx context.Context, bridgeAddress string, limit int) ([]*ScanResult, error)
	ListAlerts(ctx context.Context, bridgeAddress string, limit int) ([]*Alert, error)
}

// Notifier receives alerts as scans produce them. Delivery is best-effort;
// implementations must not block.
type Notifier interface {
	NotifyAlert(ctx context.Context, alert *Alert)
}

// baselineRecommendations are attached to every scan result regardless of
// findings. Operator guidance distilled from the catalogued exploits.
var baselineRecommendations = []string{
	"Monitor validator set changes and require timely key rotation",
	"Enforce multi-signature thresholds on privileged bridge operations",
	"Verify merkle proofs and message authenticity on every withdrawal",
	"Rate-limit large withdrawals and alert on value spikes",
	"Audit smart contract upgrades before deployment",
}

// BaselineRecommendations returns a copy of the standing guidance list.
func BaselineRecommendations() []string {
	out := make([]string, len(baselineRecommendations))
	copy(out, baselineRecommendations)
	return out
}
