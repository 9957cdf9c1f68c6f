package monitor

import (
	"context"
	"errors"
	"sync"
)

// ErrScanNotFound is returned when a scan ID has no stored result.
var ErrScanNotFound = errors.New("scan not found")

// MemoryStore is an in-memory Store for demo/test use.
type MemoryStore struct {
	mu     sync.RWMutex
	scans  map[string]*ScanResult
	byAddr map[string][]string // bridgeAddress → scan IDs, oldest first
	alerts []*Alert            // oldest first
}

// NewMemoryStore creates an in-memory scan store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		scans:  make(map[string]*ScanResult),
		byAddr: make(map[string][]string),
	}
}

func (s *MemoryStore) RecordScan(_ context.Context, result *ScanResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.scans[result.ID] = result
	s.byAddr[result.BridgeAddress] = append(s.byAddr[result.BridgeAddress], result.ID)
	s.alerts = append(s.alerts, result.Alerts...)
	return nil
}

func (s *MemoryStore) GetScan(_ context.Context, id string) (*ScanResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result, ok := s.scans[id]
	if !ok {
		return nil, ErrScanNotFound
	}
	return result, nil
}

func (s *MemoryStore) ListByBridge(_ context.Context, bridgeAddress string, limit int) ([]*ScanResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	ids := s.byAddr[bridgeAddress]
	var result []*ScanResult
	for i := len(ids) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, s.scans[ids[i]])
	}
	return result, nil
}

func (s *MemoryStore) ListAlerts(_ context.Context, bridgeAddress string, limit int) ([]*Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	var result []*Alert
	for i := len(s.alerts) - 1; i >= 0 && len(result) < limit; i-- {
		if s.alerts[i].BridgeAddress == bridgeAddress {
			result = append(result, s.alerts[i])
		}
	}
	return result, nil
}
