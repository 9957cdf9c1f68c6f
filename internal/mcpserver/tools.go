package mcpserver

import "github.com/mark3labs/mcp-go/mcp"

// Tool definitions for the Bridgewatch MCP server.
// Descriptions are what the LLM reads to decide which tool to use.

var ToolScanBridge = mcp.NewTool("scan_bridge",
	mcp.WithDescription(
		"Run a security scan over a batch of cross-chain bridge transactions. "+
			"Each transaction is matched against known exploit playbooks (Ronin, Wormhole, Nomad and others) "+
			"and its validator signatures are checked for forgery indicators. "+
			"Returns an overall risk score, per-transaction findings, and any alerts raised."),
	mcp.WithString("bridge_address",
		mcp.Required(),
		mcp.Description("The bridge contract address to scan (e.g. '0x1234...')")),
	mcp.WithString("network",
		mcp.Required(),
		mcp.Description("The network the bridge runs on (e.g. 'ethereum', 'bsc', 'polygon')")),
	mcp.WithArray("transactions",
		mcp.Description("Transactions to analyze. Each item is an object with 'hash' (string), "+
			"optional 'featureFlags' (object of boolean behavioral flags like 'large_transfer' or 'signature_issues'), "+
			"and optional 'signatures' (array of objects with 'signature', 'message', 'expectedSigner'; "+
			"multi-sig bridges attach one per validator)")),
)

var ToolGetScan = mcp.NewTool("get_scan",
	mcp.WithDescription(
		"Fetch a previously recorded scan by its ID. "+
			"Returns the full result including per-transaction analysis and alerts."),
	mcp.WithString("scan_id",
		mcp.Required(),
		mcp.Description("The scan ID from a previous scan_bridge result (e.g. 'scan_...')")),
)

var ToolListScans = mcp.NewTool("list_scans",
	mcp.WithDescription(
		"List recent security scans for a bridge address, newest first."),
	mcp.WithString("bridge_address",
		mcp.Required(),
		mcp.Description("The bridge contract address (e.g. '0x1234...')")),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of scans to return (default 10)")),
)

var ToolListAlerts = mcp.NewTool("list_bridge_alerts",
	mcp.WithDescription(
		"List security alerts raised for a bridge address, newest first. "+
			"Alerts are raised for critical risk scores and for transactions matching known attack patterns."),
	mcp.WithString("bridge_address",
		mcp.Required(),
		mcp.Description("The bridge contract address (e.g. '0x1234...')")),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of alerts to return (default 20)")),
)

var ToolValidateSignature = mcp.NewTool("validate_signature",
	mcp.WithDescription(
		"Check a single validator signature for forgery indicators: malformed encoding, "+
			"replay within the detection window, timestamp skew, failed cryptographic verification, "+
			"and signer mismatch. Returns a validity verdict with confidence and recommendations."),
	mcp.WithString("signature",
		mcp.Required(),
		mcp.Description("The hex-encoded signature to check (e.g. '0xabc...')")),
	mcp.WithString("message",
		mcp.Required(),
		mcp.Description("The signed message. Pipe-delimited messages ending in a unix timestamp get a freshness check.")),
	mcp.WithString("expected_signer",
		mcp.Description("Optional validator address the signature should recover to")),
	mcp.WithString("public_key",
		mcp.Description("Optional public key to verify the signature against")),
)

var ToolListPatterns = mcp.NewTool("list_attack_patterns",
	mcp.WithDescription(
		"List the known bridge attack patterns in the catalog, with their attack vector, "+
			"severity, and historical loss. Use this to understand what scan_bridge looks for."),
)

var ToolGetPattern = mcp.NewTool("get_attack_pattern",
	mcp.WithDescription(
		"Get full details for one attack pattern: vector, severity, historical loss, "+
			"date observed, and the behavioral indicators it matches on."),
	mcp.WithString("name",
		mcp.Required(),
		mcp.Description("The pattern name (e.g. 'ronin_2022', 'wormhole_2022', 'nomad_2022')")),
)
