package playbook

// FeatureScorer computes the base match confidence for a transaction from
// its feature flags, before any vector-specific bonus. Implementations must
// be deterministic: the same flags always produce the same score, and the
// score must stay within [BaseScoreMin, BaseScoreMax].
type FeatureScorer interface {
	BaseScore(features map[string]bool) float64
}

// Base confidence bounds enforced by the analyzer regardless of scorer.
const (
	BaseScoreMin = 0.1
	BaseScoreMax = 0.8
)

// anomalyFlags are the generic (vector-independent) anomaly signals that
// raise the base confidence for every pattern.
var anomalyFlags = []string{
	"unusual_transfers",
	"value_spike",
	"rapid_withdrawals",
	"new_recipient",
	"abnormal_gas",
}

// AnomalyScorer is the default FeatureScorer: each generic anomaly flag set
// on the transaction adds a fixed step to the floor score.
type AnomalyScorer struct {
	step float64
}

// NewAnomalyScorer creates the default scorer. With 5 generic flags and a
// 0.14 step, scores span the full [0.1, 0.8] range.
func NewAnomalyScorer() *AnomalyScorer {
	return &AnomalyScorer{step: 0.14}
}

func (s *AnomalyScorer) BaseScore(features map[string]bool) float64 {
	score := BaseScoreMin
	for _, flag := range anomalyFlags {
		if features[flag] {
			score += s.step
		}
	}
	if score > BaseScoreMax {
		score = BaseScoreMax
	}
	return score
}

// FixedScorer always returns the same base score. Test helper.
type FixedScorer struct {
	Score float64
}

func (s FixedScorer) BaseScore(map[string]bool) float64 {
	return s.Score
}
