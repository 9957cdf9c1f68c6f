// Package catalog holds the registry of known historical bridge-exploit
// patterns used as matching templates by the playbook analyzer.
//
// Patterns are loaded once at startup and never mutated. Each pattern names
// the attack vector of a real incident, the indicators observed during it,
// and the loss it caused — the loss figure drives the severity tier.
package catalog

import (
	"time"
)

// Vector is the mechanism category of a historical exploit.
type Vector string

const (
	VectorValidatorCompromise Vector = "validator_compromise"
	VectorSignatureForgery    Vector = "signature_forgery"
	VectorPrivateKeyComp      Vector = "private_key_compromise"
	VectorMultisigCompromise  Vector = "multisig_compromise"
	VectorMessageForgery      Vector = "message_forgery"
	VectorAccessControl       Vector = "access_control"
)

// FeatureFlag returns the transaction feature flag that corresponds to this
// vector. A transaction carrying the flag gets the vector-match confidence
// bonus during analysis.
func (v Vector) FeatureFlag() string {
	switch v {
	case VectorValidatorCompromise:
		return "validator_anomalies"
	case VectorSignatureForgery:
		return "signature_issues"
	case VectorPrivateKeyComp:
		return "key_compromise"
	case VectorMultisigCompromise:
		return "multisig_anomalies"
	case VectorMessageForgery:
		return "message_verification_issues"
	case VectorAccessControl:
		return "access_control_anomalies"
	default:
		return ""
	}
}

// Severity classifies how damaging a matched pattern is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Loss thresholds (USD) for severity tiers. Comparisons are strict:
// a loss exactly at a threshold stays in the lower tier.
const (
	CriticalLossUSD = 500_000_000
	HighLossUSD     = 100_000_000
	MediumLossUSD   = 10_000_000
)

// SeverityForLoss derives the severity tier from a USD loss amount.
func SeverityForLoss(lossUSD float64) Severity {
	switch {
	case lossUSD > CriticalLossUSD:
		return SeverityCritical
	case lossUSD > HighLossUSD:
		return SeverityHigh
	case lossUSD > MediumLossUSD:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// AttackPattern describes one catalogued historical bridge exploit.
type AttackPattern struct {
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	DisclosureDate time.Time `json:"disclosureDate"`
	LossAmountUSD  float64   `json:"lossAmountUsd"`
	Vector         Vector    `json:"attackVector"`
	Indicators     []string  `json:"indicators"`
}

// Severity returns the tier derived from the pattern's loss amount.
func (p *AttackPattern) Severity() Severity {
	return SeverityForLoss(p.LossAmountUSD)
}

// Catalog is an immutable set of attack patterns.
type Catalog struct {
	patterns []AttackPattern
	byName   map[string]*AttackPattern
}

// New builds a catalog from the given patterns. The slice is copied; later
// mutation of the caller's slice does not affect the catalog.
func New(patterns []AttackPattern) *Catalog {
	c := &Catalog{
		patterns: make([]AttackPattern, len(patterns)),
		byName:   make(map[string]*AttackPattern, len(patterns)),
	}
	copy(c.patterns, patterns)
	for i := range c.patterns {
		c.byName[c.patterns[i].Name] = &c.patterns[i]
	}
	return c
}

// Patterns returns a copy of all patterns in the catalog.
func (c *Catalog) Patterns() []AttackPattern {
	out := make([]AttackPattern, len(c.patterns))
	copy(out, c.patterns)
	return out
}

// Get returns the pattern with the given name, or nil if not catalogued.
func (c *Catalog) Get(name string) *AttackPattern {
	p, ok := c.byName[name]
	if !ok {
		return nil
	}
	cp := *p
	return &cp
}

// Len returns the number of catalogued patterns.
func (c *Catalog) Len() int {
	return len(c.patterns)
}

func mustDate(value string) time.Time {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic("catalog: bad date literal: " + value)
	}
	return t
}

// Default returns the built-in catalog of major historical bridge exploits.
func Default() *Catalog {
	return New([]AttackPattern{
		{
			Name:           "ronin_bridge_2022",
			Description:    "Ronin Network bridge drained after five of nine validator keys were compromised through a spear-phishing campaign.",
			DisclosureDate: mustDate("2022-03-29"),
			LossAmountUSD:  624_000_000,
			Vector:         VectorValidatorCompromise,
			Indicators:     []string{"validator_anomalies", "unusual_transfers", "dormant_key_reactivation"},
		},
		{
			Name:           "wormhole_2022",
			Description:    "Wormhole bridge minted 120k wETH on Solana via a forged guardian signature verification bypass.",
			DisclosureDate: mustDate("2022-02-02"),
			LossAmountUSD:  326_000_000,
			Vector:         VectorSignatureForgery,
			Indicators:     []string{"signature_issues", "unbacked_mint", "deprecated_verify_path"},
		},
		{
			Name:           "harmony_horizon_2022",
			Description:    "Harmony Horizon bridge drained after two of five multisig private keys were stolen.",
			DisclosureDate: mustDate("2022-06-23"),
			LossAmountUSD:  100_000_000,
			Vector:         VectorPrivateKeyComp,
			Indicators:     []string{"key_compromise", "unusual_transfers", "low_multisig_threshold"},
		},
		{
			Name:           "nomad_2022",
			Description:    "Nomad bridge drained by copy-paste replays after an upgrade made every message appear pre-proven.",
			DisclosureDate: mustDate("2022-08-01"),
			LossAmountUSD:  190_000_000,
			Vector:         VectorMessageForgery,
			Indicators:     []string{"message_verification_issues", "replayed_messages", "unusual_transfers"},
		},
		{
			Name:           "bnb_bridge_2022",
			Description:    "BSC Token Hub minted 2M BNB via forged IAVL merkle proofs accepted by the cross-chain light client.",
			DisclosureDate: mustDate("2022-10-07"),
			LossAmountUSD:  570_000_000,
			Vector:         VectorMessageForgery,
			Indicators:     []string{"message_verification_issues", "forged_proof", "unbacked_mint"},
		},
		{
			Name:           "multichain_2023",
			Description:    "Multichain MPC servers drained after operator keys were seized; withdrawals flowed to unknown EOAs.",
			DisclosureDate: mustDate("2023-07-06"),
			LossAmountUSD:  126_000_000,
			Vector:         VectorPrivateKeyComp,
			Indicators:     []string{"key_compromise", "unusual_transfers", "mpc_node_silence"},
		},
		{
			Name:           "poly_network_2021",
			Description:    "Poly Network keeper role overwritten through a crafted cross-chain call to the EthCrossChainManager.",
			DisclosureDate: mustDate("2021-08-10"),
			LossAmountUSD:  611_000_000,
			Vector:         VectorAccessControl,
			Indicators:     []string{"access_control_anomalies", "privileged_call", "unusual_transfers"},
		},
	})
}
