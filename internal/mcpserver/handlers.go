package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// Handlers holds the handler functions for each MCP tool.
type Handlers struct {
	client *BridgewatchClient
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(client *BridgewatchClient) *Handlers {
	return &Handlers{client: client}
}

// HandleScanBridge runs a scan over a batch of bridge transactions.
func (h *Handlers) HandleScanBridge(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	bridgeAddress := req.GetString("bridge_address", "")
	if bridgeAddress == "" {
		return mcp.NewToolResultError("bridge_address is required"), nil
	}
	network := req.GetString("network", "")
	if network == "" {
		return mcp.NewToolResultError("network is required"), nil
	}

	// Extract transactions as a list of objects
	var transactions []map[string]any
	if raw := req.GetArguments()["transactions"]; raw != nil {
		items, ok := raw.([]any)
		if !ok {
			return mcp.NewToolResultError("transactions must be an array of objects"), nil
		}
		for _, item := range items {
			if m, ok := item.(map[string]any); ok {
				transactions = append(transactions, m)
			}
		}
	}

	raw, err := h.client.RunScan(ctx, bridgeAddress, network, transactions)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Scan failed: %v", err)), nil
	}

	text, err := formatScanResult(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse scan result: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleGetScan fetches a recorded scan by ID.
func (h *Handlers) HandleGetScan(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	scanID := req.GetString("scan_id", "")
	if scanID == "" {
		return mcp.NewToolResultError("scan_id is required"), nil
	}

	raw, err := h.client.GetScan(ctx, scanID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get scan: %v", err)), nil
	}

	text, err := formatScanResult(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse scan: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleListScans lists recent scans for a bridge.
func (h *Handlers) HandleListScans(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	bridgeAddress := req.GetString("bridge_address", "")
	if bridgeAddress == "" {
		return mcp.NewToolResultError("bridge_address is required"), nil
	}
	limit := req.GetInt("limit", 10)

	raw, err := h.client.ListScans(ctx, bridgeAddress, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list scans: %v", err)), nil
	}

	text, err := formatScanList(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse scans: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleListAlerts lists recent alerts for a bridge.
func (h *Handlers) HandleListAlerts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	bridgeAddress := req.GetString("bridge_address", "")
	if bridgeAddress == "" {
		return mcp.NewToolResultError("bridge_address is required"), nil
	}
	limit := req.GetInt("limit", 20)

	raw, err := h.client.ListAlerts(ctx, bridgeAddress, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list alerts: %v", err)), nil
	}

	text, err := formatAlertList(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse alerts: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleValidateSignature checks one signature for forgery indicators.
func (h *Handlers) HandleValidateSignature(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	signature := req.GetString("signature", "")
	if signature == "" {
		return mcp.NewToolResultError("signature is required"), nil
	}
	message := req.GetString("message", "")
	if message == "" {
		return mcp.NewToolResultError("message is required"), nil
	}
	expectedSigner := req.GetString("expected_signer", "")
	publicKey := req.GetString("public_key", "")

	raw, err := h.client.ValidateSignature(ctx, signature, message, publicKey, expectedSigner)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Validation failed: %v", err)), nil
	}

	text, err := formatValidation(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse validation result: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleListPatterns lists the attack pattern catalog.
func (h *Handlers) HandleListPatterns(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := h.client.ListPatterns(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list patterns: %v", err)), nil
	}

	text, err := formatPatternList(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse patterns: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleGetPattern fetches one attack pattern by name.
func (h *Handlers) HandleGetPattern(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")
	if name == "" {
		return mcp.NewToolResultError("name is required"), nil
	}

	raw, err := h.client.GetPattern(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get pattern: %v", err)), nil
	}

	var resp struct {
		Pattern map[string]any `json:"pattern"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil || resp.Pattern == nil {
		return mcp.NewToolResultError("Failed to parse pattern response"), nil
	}

	return mcp.NewToolResultText(formatPattern(resp.Pattern)), nil
}

// --- Formatting helpers ---

type scanSummary struct {
	TransactionsScanned int `json:"transactionsScanned"`
	TransactionsFailed  int `json:"transactionsFailed"`
	PatternsMatched     int `json:"patternsMatched"`
	SignaturesChecked   int `json:"signaturesChecked"`
	SignaturesFlagged   int `json:"signaturesFlagged"`
	AlertsRaised        int `json:"alertsRaised"`
}

type scanView struct {
	ID               string      `json:"id"`
	BridgeAddress    string      `json:"bridgeAddress"`
	Network          string      `json:"network"`
	OverallRiskScore float64     `json:"overallRiskScore"`
	RiskLevel        string      `json:"riskLevel"`
	Alerts           []alertView `json:"alerts"`
	Recommendations  []string    `json:"recommendations"`
	Summary          scanSummary `json:"summary"`
}

type alertView struct {
	ID              string `json:"id"`
	Type            string `json:"alertType"`
	Severity        string `json:"severity"`
	Message         string `json:"message"`
	TransactionHash string `json:"transactionHash"`
	CreatedAt       string `json:"createdAt"`
}

func formatScanResult(raw json.RawMessage) (string, error) {
	var resp struct {
		Scan *scanView `json:"scan"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}
	if resp.Scan == nil {
		return "", fmt.Errorf("unexpected scan response format")
	}
	s := resp.Scan

	var sb strings.Builder
	fmt.Fprintf(&sb, "Scan %s\n", s.ID)
	fmt.Fprintf(&sb, "Bridge: %s (%s)\n", s.BridgeAddress, s.Network)
	fmt.Fprintf(&sb, "Risk: %.2f/10 (%s)\n\n", s.OverallRiskScore, s.RiskLevel)

	fmt.Fprintf(&sb, "Scanned %d transaction(s)", s.Summary.TransactionsScanned)
	if s.Summary.TransactionsFailed > 0 {
		fmt.Fprintf(&sb, " (%d failed analysis)", s.Summary.TransactionsFailed)
	}
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Pattern matches: %d\n", s.Summary.PatternsMatched)
	if s.Summary.SignaturesChecked > 0 {
		fmt.Fprintf(&sb, "Signatures: %d checked, %d flagged\n", s.Summary.SignaturesChecked, s.Summary.SignaturesFlagged)
	}

	if len(s.Alerts) > 0 {
		sb.WriteString("\nAlerts:\n")
		for _, a := range s.Alerts {
			fmt.Fprintf(&sb, "  [%s] %s: %s\n", strings.ToUpper(a.Severity), a.Type, a.Message)
		}
	}

	if len(s.Recommendations) > 0 {
		sb.WriteString("\nRecommendations:\n")
		for _, r := range s.Recommendations {
			fmt.Fprintf(&sb, "  - %s\n", r)
		}
	}

	return sb.String(), nil
}

func formatScanList(raw json.RawMessage) (string, error) {
	var resp struct {
		Scans []scanView `json:"scans"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}
	if len(resp.Scans) == 0 {
		return "No scans recorded for this bridge.", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d scan(s):\n\n", len(resp.Scans))
	for i, s := range resp.Scans {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, s.ID)
		fmt.Fprintf(&sb, "   Risk: %.2f/10 (%s) | Transactions: %d | Alerts: %d\n",
			s.OverallRiskScore, s.RiskLevel, s.Summary.TransactionsScanned, s.Summary.AlertsRaised)
	}
	return sb.String(), nil
}

func formatAlertList(raw json.RawMessage) (string, error) {
	var resp struct {
		Alerts []alertView `json:"alerts"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}
	if len(resp.Alerts) == 0 {
		return "No alerts recorded for this bridge.", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d alert(s):\n\n", len(resp.Alerts))
	for i, a := range resp.Alerts {
		fmt.Fprintf(&sb, "%d. [%s] %s\n", i+1, strings.ToUpper(a.Severity), a.Type)
		fmt.Fprintf(&sb, "   %s\n", a.Message)
		if a.TransactionHash != "" {
			fmt.Fprintf(&sb, "   Transaction: %s\n", a.TransactionHash)
		}
	}
	return sb.String(), nil
}

func formatValidation(raw json.RawMessage) (string, error) {
	var resp struct {
		Results []struct {
			IsValid           bool     `json:"isValid"`
			ConfidenceScore   float64  `json:"confidenceScore"`
			ForgeryIndicators []string `json:"forgeryIndicators"`
			Recommendations   []string `json:"recommendations"`
		} `json:"results"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}
	if len(resp.Results) == 0 {
		return "", fmt.Errorf("unexpected validation response format")
	}
	r := resp.Results[0]

	var sb strings.Builder
	if r.IsValid {
		sb.WriteString("Signature: VALID\n")
	} else {
		sb.WriteString("Signature: SUSPECT\n")
	}
	fmt.Fprintf(&sb, "Confidence: %.2f\n", r.ConfidenceScore)

	if len(r.ForgeryIndicators) > 0 {
		sb.WriteString("\nForgery indicators:\n")
		for _, ind := range r.ForgeryIndicators {
			fmt.Fprintf(&sb, "  - %s\n", ind)
		}
	}
	if len(r.Recommendations) > 0 {
		sb.WriteString("\nRecommendations:\n")
		for _, rec := range r.Recommendations {
			fmt.Fprintf(&sb, "  - %s\n", rec)
		}
	}

	return sb.String(), nil
}

func formatPatternList(raw json.RawMessage) (string, error) {
	var resp struct {
		Patterns []map[string]any `json:"patterns"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}
	if len(resp.Patterns) == 0 {
		return "The attack pattern catalog is empty.", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Known attack patterns (%d):\n\n", len(resp.Patterns))
	for i, p := range resp.Patterns {
		name := getString(p, "name")
		vector := getString(p, "attackVector")
		severity := getString(p, "severity")
		fmt.Fprintf(&sb, "%d. %s\n", i+1, name)
		fmt.Fprintf(&sb, "   Vector: %s | Severity: %s", vector, severity)
		if loss, ok := getFloat(p, "lossAmountUsd"); ok && loss > 0 {
			fmt.Fprintf(&sb, " | Loss: $%.0fM", loss/1e6)
		}
		sb.WriteString("\n")
		if i < len(resp.Patterns)-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String(), nil
}

func formatPattern(p map[string]any) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Pattern: %s\n", getString(p, "name"))
	if desc := getString(p, "description"); desc != "" {
		fmt.Fprintf(&sb, "%s\n\n", desc)
	}
	fmt.Fprintf(&sb, "Vector: %s\n", getString(p, "attackVector"))
	fmt.Fprintf(&sb, "Severity: %s\n", getString(p, "severity"))
	if loss, ok := getFloat(p, "lossAmountUsd"); ok {
		fmt.Fprintf(&sb, "Historical loss: $%.0f\n", loss)
	}
	if date := getString(p, "disclosureDate"); date != "" {
		fmt.Fprintf(&sb, "Disclosed: %s\n", date)
	}
	if inds, ok := p["indicators"].([]any); ok && len(inds) > 0 {
		sb.WriteString("\nIndicators:\n")
		for _, ind := range inds {
			if s, ok := ind.(string); ok {
				fmt.Fprintf(&sb, "  - %s\n", s)
			}
		}
	}
	return sb.String()
}

// getString extracts a string value from a map, trying multiple key names.
func getString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s, ok := v.(string); ok {
				return s
			}
			if f, ok := v.(float64); ok {
				return fmt.Sprintf("%g", f)
			}
		}
	}
	return ""
}

// getFloat extracts a float64 value from a map, trying multiple key names.
func getFloat(m map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if f, ok := v.(float64); ok {
				return f, true
			}
		}
	}
	return 0, false
}
