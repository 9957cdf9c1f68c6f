package monitor

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/mbd888/bridgewatch/internal/catalog"
	"github.com/mbd888/bridgewatch/internal/idgen"
	"github.com/mbd888/bridgewatch/internal/logging"
	"github.com/mbd888/bridgewatch/internal/playbook"
	"github.com/mbd888/bridgewatch/internal/sigforge"
)

// DefaultScanWorkers bounds per-transaction parallelism within a scan.
const DefaultScanWorkers = 4

// Monitor runs bridge security scans. Safe for concurrent use; all mutable
// state lives in the forgery detector's replay cache.
type Monitor struct {
	analyzer  *playbook.Analyzer
	detector  *sigforge.Detector
	workers   int
	notifiers []Notifier
	now       func() time.Time
}

// NewMonitor creates a monitor over the given analyzer and detector.
func NewMonitor(analyzer *playbook.Analyzer, detector *sigforge.Detector) *Monitor {
	return &Monitor{
		analyzer: analyzer,
		detector: detector,
		workers:  DefaultScanWorkers,
		now:      time.Now,
	}
}

// WithWorkers overrides the per-scan worker bound.
func (m *Monitor) WithWorkers(n int) *Monitor {
	if n > 0 {
		m.workers = n
	}
	return m
}

// WithNotifier registers an alert notifier.
func (m *Monitor) WithNotifier(n Notifier) *Monitor {
	m.notifiers = append(m.notifiers, n)
	return m
}

// WithClock overrides the time source for deterministic tests.
func (m *Monitor) WithClock(now func() time.Time) *Monitor {
	m.now = now
	return m
}

// Detector returns the monitor's forgery detector.
func (m *Monitor) Detector() *sigforge.Detector {
	return m.detector
}

// Scan analyzes a batch of transactions for one bridge. Per-transaction work
// runs on a bounded worker pool; reports come back in input order. A panic
// while analyzing one transaction marks that report with analysis_error and
// the scan continues. An empty batch yields risk 0 and level low.
func (m *Monitor) Scan(ctx context.Context, bridgeAddress, network string, txs []TransactionInput) *ScanResult {
	started := m.now()
	result := &ScanResult{
		ID:              idgen.WithPrefix("scan_"),
		BridgeAddress:   bridgeAddress,
		Network:         network,
		StartedAt:       started,
		Transactions:    make([]*TxReport, len(txs)),
		Recommendations: BaselineRecommendations(),
		RiskLevel:       RiskLevelLow,
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, m.workers)

	for i := range txs {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			result.Transactions[i] = m.scanOne(ctx, &txs[i])
		}(i)
	}
	wg.Wait()

	m.aggregate(result)
	m.raiseAlerts(ctx, result)
	result.CompletedAt = m.now()

	ScansTotal.WithLabelValues(string(result.RiskLevel)).Inc()
	ScanDuration.Observe(result.CompletedAt.Sub(started).Seconds())
	ReplayCacheEntries.Set(float64(m.detector.Cache().Len()))

	logging.L(ctx).Info("bridge scan completed",
		"scan_id", result.ID,
		"bridge", bridgeAddress,
		"transactions", len(txs),
		"risk_score", result.OverallRiskScore,
		"risk_level", result.RiskLevel,
		"alerts", len(result.Alerts),
	)
	return result
}

// scanOne analyzes a single transaction, converting panics into a degraded
// report rather than failing the scan.
func (m *Monitor) scanOne(ctx context.Context, tx *TransactionInput) (report *TxReport) {
	report = &TxReport{Hash: tx.Hash}

	defer func() {
		if r := recover(); r != nil {
			logging.L(ctx).Error("transaction analysis panicked",
				"tx_hash", tx.Hash, "panic", fmt.Sprint(r))
			report.Error = ErrorAnalysisFailed
			report.Analysis = nil
			report.Signatures = nil
		}
	}()

	report.Analysis = m.analyzer.Analyze(&playbook.Transaction{
		Hash:     tx.Hash,
		Features: tx.Features,
		Metadata: tx.Metadata,
	})
	for _, match := range report.Analysis.MatchedAttacks {
		AttackMatchesTotal.WithLabelValues(match.PatternName).Inc()
	}

	for _, sig := range tx.Signatures {
		v := m.detector.ValidateSignature(ctx, sigforge.SignatureCheck{
			Signature:      sig.Signature,
			Message:        sig.Message,
			PublicKey:      sig.PublicKey,
			ExpectedSigner: sig.ExpectedSigner,
		})
		observeValidation(v)
		report.Signatures = append(report.Signatures, v)
	}

	return report
}

// aggregate computes the scan summary and the bridge-level risk from the
// successfully analyzed reports. Failed reports are counted but excluded
// from every average. The overall score is the mean of two 0-10 components:
// the attack-risk average across analyzed transactions and the forgery-risk
// average across checked signatures (each validation contributes
// 1 - confidence, scaled to 0-10). Both denominators are guarded so an
// empty side contributes zero. Per-signature recommendations are lifted,
// deduplicated, into the scan-level list.
func (m *Monitor) aggregate(result *ScanResult) {
	var attackSum, forgerySum float64
	var analyzed, checked int

	seen := make(map[string]bool, len(result.Recommendations))
	for _, rec := range result.Recommendations {
		seen[rec] = true
	}

	for _, report := range result.Transactions {
		if report.Error != "" {
			result.Summary.TransactionsFailed++
			continue
		}
		result.Summary.TransactionsScanned++

		if report.Analysis != nil {
			analyzed++
			attackSum += report.Analysis.RiskScore
			result.Summary.PatternsMatched += len(report.Analysis.MatchedAttacks)
			if report.Analysis.RiskScore >= CriticalRiskScore {
				result.Summary.HighRiskTransactions++
			}
			for _, match := range report.Analysis.MatchedAttacks {
				if match.Severity == catalog.SeverityCritical {
					result.Summary.CriticalMatches++
				}
			}
		}
		for _, v := range report.Signatures {
			checked++
			result.Summary.SignaturesChecked++
			forgerySum += 1 - v.ConfidenceScore
			if len(v.ForgeryIndicators) > 0 {
				result.Summary.SignaturesFlagged++
			}
			for _, rec := range v.Recommendations {
				if !seen[rec] {
					seen[rec] = true
					result.Recommendations = append(result.Recommendations, rec)
				}
			}
		}
	}

	attackRisk := attackSum / math.Max(float64(analyzed), 1)
	forgeryRisk := forgerySum / math.Max(float64(checked), 1) * 10
	result.OverallRiskScore = math.Round((attackRisk+forgeryRisk)/2*100) / 100
	result.RiskLevel = RiskLevelFor(result.OverallRiskScore)
}

// raiseAlerts emits scan-level alerts and fans them out to notifiers.
func (m *Monitor) raiseAlerts(ctx context.Context, result *ScanResult) {
	if result.RiskLevel == RiskLevelCritical {
		result.Alerts = append(result.Alerts, &Alert{
			ID:            idgen.WithPrefix("alert_"),
			ScanID:        result.ID,
			Type:          AlertCriticalThreat,
			Severity:      string(catalog.SeverityCritical),
			Message:       fmt.Sprintf("Bridge risk score %.2f exceeds critical threshold", result.OverallRiskScore),
			BridgeAddress: result.BridgeAddress,
			CreatedAt:     m.now(),
		})
	}

	// Pattern alerts fire only for transactions matching a critical-severity
	// pattern; lower-severity matches stay in the report without alerting.
	for _, report := range result.Transactions {
		if report.Error != "" || report.Analysis == nil {
			continue
		}
		var strongest *playbook.Match
		for i := range report.Analysis.MatchedAttacks {
			match := &report.Analysis.MatchedAttacks[i]
			if match.Severity != catalog.SeverityCritical {
				continue
			}
			if strongest == nil || match.Confidence > strongest.Confidence {
				strongest = match
			}
		}
		if strongest == nil {
			continue
		}
		result.Alerts = append(result.Alerts, &Alert{
			ID:              idgen.WithPrefix("alert_"),
			ScanID:          result.ID,
			Type:            AlertPatternDetected,
			Severity:        string(strongest.Severity),
			Message:         fmt.Sprintf("Transaction matches %s (confidence %.2f)", strongest.PatternName, strongest.Confidence),
			BridgeAddress:   result.BridgeAddress,
			TransactionHash: report.Hash,
			CreatedAt:       m.now(),
		})
	}

	result.Summary.AlertsRaised = len(result.Alerts)

	for _, alert := range result.Alerts {
		for _, n := range m.notifiers {
			n.NotifyAlert(ctx, alert)
		}
	}
}

func observeValidation(v *sigforge.ValidationResult) {
	outcome := "valid"
	if !v.IsValid {
		outcome = "flagged"
	}
	SignatureValidationsTotal.WithLabelValues(outcome).Inc()
	for _, indicator := range v.ForgeryIndicators {
		ForgeryIndicatorsTotal.WithLabelValues(indicator).Inc()
	}
}
