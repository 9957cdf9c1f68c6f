package monitor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mbd888/bridgewatch/internal/catalog"
	"github.com/mbd888/bridgewatch/internal/playbook"
	"github.com/mbd888/bridgewatch/internal/sigforge"
)

func newTestMonitor(t *testing.T, scorer playbook.FeatureScorer) *Monitor {
	t.Helper()
	return newTestMonitorWithVerifier(t, scorer, sigforge.StaticVerifier{CryptoOK: true, SignerOK: true})
}

func newTestMonitorWithVerifier(t *testing.T, scorer playbook.FeatureScorer, verifier sigforge.StaticVerifier) *Monitor {
	t.Helper()

	analyzer := playbook.NewAnalyzer(catalog.Default())
	if scorer != nil {
		analyzer = analyzer.WithScorer(scorer)
	}

	detector := sigforge.NewDetector(sigforge.NewReplayCache(time.Hour), verifier, verifier)
	return NewMonitor(analyzer, detector)
}

func TestRiskLevelFor(t *testing.T) {
	tests := []struct {
		score float64
		want  RiskLevel
	}{
		{0, RiskLevelLow},
		{1.99, RiskLevelLow},
		{2.0, RiskLevelMedium},
		{3.99, RiskLevelMedium},
		{4.0, RiskLevelHigh},
		{6.99, RiskLevelHigh},
		{7.0, RiskLevelCritical},
		{10.0, RiskLevelCritical},
	}

	for _, tt := range tests {
		if got := RiskLevelFor(tt.score); got != tt.want {
			t.Errorf("RiskLevelFor(%v) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestScanEmptyBatch(t *testing.T) {
	m := newTestMonitor(t, nil)

	result := m.Scan(context.Background(), "0xbridge", "ethereum", nil)

	if result.OverallRiskScore != 0 {
		t.Errorf("empty batch risk = %v, want 0", result.OverallRiskScore)
	}
	if result.RiskLevel != RiskLevelLow {
		t.Errorf("empty batch level = %s, want low", result.RiskLevel)
	}
	if len(result.Alerts) != 0 {
		t.Errorf("empty batch raised %d alerts", len(result.Alerts))
	}
	if len(result.Recommendations) == 0 {
		t.Error("baseline recommendations missing")
	}
	if !strings.HasPrefix(result.ID, "scan_") {
		t.Errorf("unexpected scan ID format: %s", result.ID)
	}
}

func TestScanCleanTransactionsLowRisk(t *testing.T) {
	m := newTestMonitor(t, nil)

	txs := []TransactionInput{
		{Hash: "0xaaa"},
		{Hash: "0xbbb"},
	}
	result := m.Scan(context.Background(), "0xbridge", "ethereum", txs)

	if result.RiskLevel != RiskLevelLow {
		t.Errorf("clean txs level = %s, want low", result.RiskLevel)
	}
	if result.Summary.TransactionsScanned != 2 {
		t.Errorf("scanned = %d, want 2", result.Summary.TransactionsScanned)
	}
	if result.Summary.PatternsMatched != 0 {
		t.Errorf("matched = %d, want 0", result.Summary.PatternsMatched)
	}
	if len(result.Alerts) != 0 {
		t.Errorf("raised %d alerts for clean batch", len(result.Alerts))
	}
}

func TestScanMediumRisk(t *testing.T) {
	// Base 0.35 matches every pattern at 0.35 → attack risk 3.5. The clean
	// signature validates at confidence 0.95 → forgery risk 0.5. The overall
	// score is the mean of the two components: (3.5 + 0.5) / 2 = 2.0.
	m := newTestMonitor(t, playbook.FixedScorer{Score: 0.35})

	good := "0x" + strings.Repeat("ab", 65)
	msg := sigforge.BuildMessage("0xbridge", "0xr", "1.0", 1, time.Now().Unix())

	result := m.Scan(context.Background(), "0xbridge", "ethereum", []TransactionInput{
		{Hash: "0xaaa", Signatures: []SignatureInput{{Signature: good, Message: msg}}},
	})

	if result.OverallRiskScore != 2.0 {
		t.Errorf("score = %v, want 2.0", result.OverallRiskScore)
	}
	if result.RiskLevel != RiskLevelMedium {
		t.Errorf("level = %s, want medium (score %v)", result.RiskLevel, result.OverallRiskScore)
	}
}

func TestScanFlaggedSignatureRaisesBridgeRisk(t *testing.T) {
	// Forgery findings must surface in the bridge-level score even when no
	// attack pattern matches. A failing crypto delegate plus a malformed,
	// timestampless signature yields 3 indicators → confidence 0.35 →
	// forgery risk 6.5; with attack risk 0 the overall score is 3.25.
	m := newTestMonitorWithVerifier(t, nil, sigforge.StaticVerifier{})

	result := m.Scan(context.Background(), "0xbridge", "ethereum", []TransactionInput{
		{Hash: "0xclean", Signatures: []SignatureInput{
			{Signature: "0xdead", Message: "no timestamp here"},
		}},
	})

	if result.Summary.PatternsMatched != 0 {
		t.Fatalf("matched = %d, want 0", result.Summary.PatternsMatched)
	}
	if result.Summary.SignaturesFlagged != 1 {
		t.Errorf("flagged = %d, want 1", result.Summary.SignaturesFlagged)
	}
	if result.OverallRiskScore != 3.25 {
		t.Errorf("score = %v, want 3.25", result.OverallRiskScore)
	}
	if result.RiskLevel != RiskLevelMedium {
		t.Errorf("level = %s, want medium", result.RiskLevel)
	}
}

func TestScanCriticalRaisesThreatAlert(t *testing.T) {
	// Max base plus the vector bonus saturates attack risk at 10; the
	// malformed timestampless signature carries 2 indicators → confidence
	// 0.55 → forgery risk 4.5. Overall (10 + 4.5) / 2 = 7.25, critical.
	m := newTestMonitor(t, playbook.FixedScorer{Score: 0.8})

	result := m.Scan(context.Background(), "0xbridge", "ethereum", []TransactionInput{
		{
			Hash:     "0xaaa",
			Features: map[string]bool{"signature_issues": true},
			Signatures: []SignatureInput{
				{Signature: "0xdead", Message: "no timestamp here"},
			},
		},
	})

	if result.OverallRiskScore != 7.25 {
		t.Fatalf("score = %v, want 7.25", result.OverallRiskScore)
	}
	if result.RiskLevel != RiskLevelCritical {
		t.Fatalf("level = %s, want critical", result.RiskLevel)
	}

	var threat, pattern int
	for _, a := range result.Alerts {
		switch a.Type {
		case AlertCriticalThreat:
			threat++
			if a.BridgeAddress != "0xbridge" {
				t.Errorf("threat alert bridge = %s", a.BridgeAddress)
			}
		case AlertPatternDetected:
			pattern++
			if a.TransactionHash != "0xaaa" {
				t.Errorf("pattern alert tx = %s", a.TransactionHash)
			}
		}
	}
	if threat != 1 {
		t.Errorf("critical threat alerts = %d, want 1", threat)
	}
	if pattern != 1 {
		t.Errorf("pattern alerts = %d, want 1", pattern)
	}
	if result.Summary.AlertsRaised != len(result.Alerts) {
		t.Errorf("summary alerts = %d, want %d", result.Summary.AlertsRaised, len(result.Alerts))
	}
}

func TestScanPatternAlertOnlyForCriticalMatches(t *testing.T) {
	// Base 0.1 matches nothing on its own; the signature_issues flag lifts
	// only wormhole_2022 (high severity) past the threshold. A high-severity
	// match stays in the report without raising a pattern alert.
	m := newTestMonitor(t, playbook.FixedScorer{Score: 0.1})

	result := m.Scan(context.Background(), "0xbridge", "ethereum", []TransactionInput{
		{Hash: "0xaaa", Features: map[string]bool{"signature_issues": true}},
	})

	if result.Summary.PatternsMatched != 1 {
		t.Fatalf("matched = %d, want 1", result.Summary.PatternsMatched)
	}
	if result.Summary.CriticalMatches != 0 {
		t.Errorf("critical matches = %d, want 0", result.Summary.CriticalMatches)
	}
	if len(result.Alerts) != 0 {
		t.Errorf("raised %d alerts for a high-severity match", len(result.Alerts))
	}

	// The validator_anomalies flag lifts ronin_bridge_2022 instead, which is
	// critical: now the pattern alert fires.
	result = m.Scan(context.Background(), "0xbridge", "ethereum", []TransactionInput{
		{Hash: "0xbbb", Features: map[string]bool{"validator_anomalies": true}},
	})

	if result.Summary.CriticalMatches != 1 {
		t.Fatalf("critical matches = %d, want 1", result.Summary.CriticalMatches)
	}
	if len(result.Alerts) != 1 {
		t.Fatalf("alerts = %d, want 1", len(result.Alerts))
	}
	alert := result.Alerts[0]
	if alert.Type != AlertPatternDetected {
		t.Errorf("alert type = %s, want %s", alert.Type, AlertPatternDetected)
	}
	if !strings.Contains(alert.Message, "ronin_bridge_2022") {
		t.Errorf("alert message %q does not name the matched pattern", alert.Message)
	}
	if alert.Severity != string(catalog.SeverityCritical) {
		t.Errorf("alert severity = %s, want critical", alert.Severity)
	}
}

func TestScanSummaryCountsHighRiskTransactions(t *testing.T) {
	// Base 0.6 alone gives attack risk 6 (below the high-risk bar); the
	// validator_anomalies flag lifts ronin to 0.9 → risk 9 for the second tx.
	m := newTestMonitor(t, playbook.FixedScorer{Score: 0.6})

	result := m.Scan(context.Background(), "0xbridge", "ethereum", []TransactionInput{
		{Hash: "0xaaa"},
		{Hash: "0xbbb", Features: map[string]bool{"validator_anomalies": true}},
	})

	if result.Summary.HighRiskTransactions != 1 {
		t.Errorf("high-risk txs = %d, want 1", result.Summary.HighRiskTransactions)
	}
	// Each tx matches the full catalog at base 0.6; ronin_bridge_2022,
	// bnb_bridge_2022 and poly_network_2021 are the critical entries.
	if result.Summary.CriticalMatches != 6 {
		t.Errorf("critical matches = %d, want 6", result.Summary.CriticalMatches)
	}
	if result.Summary.PatternsMatched != 2*catalog.Default().Len() {
		t.Errorf("matched = %d, want %d", result.Summary.PatternsMatched, 2*catalog.Default().Len())
	}
}

// panicScorer panics when a transaction carries the trigger flag.
type panicScorer struct{}

func (panicScorer) BaseScore(features map[string]bool) float64 {
	if features["boom"] {
		panic("scorer exploded")
	}
	return 0.35
}

func TestScanPartialFailureDegradesOneReport(t *testing.T) {
	m := newTestMonitor(t, panicScorer{})

	txs := []TransactionInput{
		{Hash: "0xgood1"},
		{Hash: "0xbad", Features: map[string]bool{"boom": true}},
		{Hash: "0xgood2"},
	}
	result := m.Scan(context.Background(), "0xbridge", "ethereum", txs)

	if result.Transactions[1].Error != ErrorAnalysisFailed {
		t.Errorf("failed report error = %q, want %q", result.Transactions[1].Error, ErrorAnalysisFailed)
	}
	if result.Transactions[1].Analysis != nil {
		t.Error("failed report carries an analysis")
	}
	if result.Summary.TransactionsFailed != 1 {
		t.Errorf("failed = %d, want 1", result.Summary.TransactionsFailed)
	}
	if result.Summary.TransactionsScanned != 2 {
		t.Errorf("scanned = %d, want 2", result.Summary.TransactionsScanned)
	}
	// The failed report must not drag the average down: both good txs score
	// attack risk 3.5, and with no signatures the overall is half of that.
	if result.OverallRiskScore != 1.75 {
		t.Errorf("score = %v, want 1.75 over the 2 analyzed txs", result.OverallRiskScore)
	}
}

func TestScanPreservesInputOrder(t *testing.T) {
	m := newTestMonitor(t, nil).WithWorkers(8)

	txs := make([]TransactionInput, 50)
	for i := range txs {
		txs[i] = TransactionInput{Hash: fmt.Sprintf("0xtx%02d", i)}
	}

	result := m.Scan(context.Background(), "0xbridge", "ethereum", txs)

	for i, report := range result.Transactions {
		if report.Hash != txs[i].Hash {
			t.Fatalf("report %d hash = %s, want %s", i, report.Hash, txs[i].Hash)
		}
	}
}

func TestScanValidatesAttachedSignatures(t *testing.T) {
	m := newTestMonitor(t, nil)

	goodA := "0x" + strings.Repeat("ab", 65)
	goodB := "0x" + strings.Repeat("cd", 65)
	msg := sigforge.BuildMessage("0xbridge", "0xr", "1.0", 1, time.Now().Unix())

	txs := []TransactionInput{
		{Hash: "0xaaa", Signatures: []SignatureInput{
			{Signature: goodA, Message: msg},
			{Signature: "tooshort", Message: msg},
		}},
		{Hash: "0xbbb", Signatures: []SignatureInput{{Signature: goodB, Message: msg}}},
		{Hash: "0xccc"},
	}
	result := m.Scan(context.Background(), "0xbridge", "ethereum", txs)

	if result.Summary.SignaturesChecked != 3 {
		t.Errorf("checked = %d, want 3", result.Summary.SignaturesChecked)
	}
	if result.Summary.SignaturesFlagged != 1 {
		t.Errorf("flagged = %d, want 1", result.Summary.SignaturesFlagged)
	}

	// Multi-sig results come back in submission order.
	multi := result.Transactions[0].Signatures
	if len(multi) != 2 {
		t.Fatalf("multi-sig tx has %d results, want 2", len(multi))
	}
	if len(multi[0].ForgeryIndicators) != 0 {
		t.Errorf("first signature flagged %v, want clean", multi[0].ForgeryIndicators)
	}
	if len(multi[1].ForgeryIndicators) == 0 {
		t.Error("malformed second signature not flagged")
	}

	if len(result.Transactions[2].Signatures) != 0 {
		t.Error("tx without signatures got validation results")
	}
}

func TestScanLiftsSignatureRecommendations(t *testing.T) {
	m := newTestMonitor(t, nil)

	// Two signatures with the same indicator set (malformed + timestampless)
	// must contribute their guidance to the scan once, after the baseline.
	result := m.Scan(context.Background(), "0xbridge", "ethereum", []TransactionInput{
		{Hash: "0xaaa", Signatures: []SignatureInput{
			{Signature: "0xdead", Message: "no timestamp"},
			{Signature: "0xbeef", Message: "no timestamp"},
		}},
	})

	baseline := BaselineRecommendations()
	if len(result.Recommendations) != len(baseline)+2 {
		t.Fatalf("recommendations = %d, want %d (baseline + 2 lifted)",
			len(result.Recommendations), len(baseline)+2)
	}
	for i, rec := range baseline {
		if result.Recommendations[i] != rec {
			t.Fatalf("baseline recommendation %d = %q, want %q", i, result.Recommendations[i], rec)
		}
	}
	counts := make(map[string]int)
	for _, rec := range result.Recommendations {
		counts[rec]++
	}
	for rec, n := range counts {
		if n != 1 {
			t.Errorf("recommendation %q appears %d times", rec, n)
		}
	}
}

// captureNotifier records alerts it receives.
type captureNotifier struct {
	mu     sync.Mutex
	alerts []*Alert
}

func (n *captureNotifier) NotifyAlert(_ context.Context, alert *Alert) {
	n.mu.Lock()
	n.alerts = append(n.alerts, alert)
	n.mu.Unlock()
}

func TestScanNotifiesAlerts(t *testing.T) {
	capture := &captureNotifier{}
	m := newTestMonitor(t, playbook.FixedScorer{Score: 0.8}).WithNotifier(capture)

	result := m.Scan(context.Background(), "0xbridge", "ethereum", []TransactionInput{
		{Hash: "0xaaa", Features: map[string]bool{"validator_anomalies": true}},
	})

	if len(result.Alerts) == 0 {
		t.Fatal("scan raised no alerts")
	}
	capture.mu.Lock()
	defer capture.mu.Unlock()
	if len(capture.alerts) != len(result.Alerts) {
		t.Errorf("notified %d alerts, scan raised %d", len(capture.alerts), len(result.Alerts))
	}
}
