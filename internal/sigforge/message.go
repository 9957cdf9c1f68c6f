package sigforge

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// messagePrefix identifies bridge transfer messages built by this service.
const messagePrefix = "Bridgewatch"

// BuildMessage creates the canonical signing payload for a bridge transfer.
// Format: "Bridgewatch|{bridge}|{recipient}|{amount}|{nonce}|{timestamp}"
// with the unix timestamp last so validators can extract it cheaply.
func BuildMessage(bridge, recipient, amount string, nonce uint64, timestamp int64) string {
	return fmt.Sprintf("%s|%s|%s|%s|%d|%d",
		messagePrefix,
		strings.ToLower(bridge),
		strings.ToLower(recipient),
		amount,
		nonce,
		timestamp,
	)
}

// ExtractTimestamp pulls the embedded unix timestamp out of a message.
// Pipe-delimited messages carry it as the final field; JSON messages as a
// numeric "timestamp" key. Returns false when no timestamp can be parsed —
// the caller treats that as a failed timestamp check, not an error.
func ExtractTimestamp(message string) (time.Time, bool) {
	if i := strings.LastIndexByte(message, '|'); i >= 0 {
		if ts, err := strconv.ParseInt(message[i+1:], 10, 64); err == nil && ts > 0 {
			return time.Unix(ts, 0), true
		}
	}

	var payload struct {
		Timestamp int64 `json:"timestamp"`
	}
	if err := json.Unmarshal([]byte(message), &payload); err == nil && payload.Timestamp > 0 {
		return time.Unix(payload.Timestamp, 0), true
	}

	return time.Time{}, false
}
