package store

import (
	"sync"
	"time"
)

// MemoryStore is the default backend. Records live for the lifetime of
// the process, which matches the privacy posture of not keeping plans
// around longer than needed.
type MemoryStore struct {
	mu       sync.RWMutex
	analyses map[string]AnalysisRecord
	payments map[string]PaymentRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		analyses: make(map[string]AnalysisRecord),
		payments: make(map[string]PaymentRecord),
	}
}

func (s *MemoryStore) PutAnalysis(rec AnalysisRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analyses[rec.ID] = rec
	return nil
}

func (s *MemoryStore) GetAnalysis(id string) (AnalysisRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.analyses[id]
	if !ok {
		return AnalysisRecord{}, ErrNotFound
	}
	return rec, nil
}

func (s *MemoryStore) MarkPaid(id, email, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.analyses[id]
	if !ok {
		return ErrNotFound
	}
	rec.Paid = true
	rec.CustomerEmail = email
	rec.CustomerName = name
	s.analyses[id] = rec
	return nil
}

func (s *MemoryStore) DeleteAnalysis(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.analyses[id]; !ok {
		return ErrNotFound
	}
	delete(s.analyses, id)
	return nil
}

func (s *MemoryStore) PutPayment(rec PaymentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments[rec.OrderID] = rec
	return nil
}

func (s *MemoryStore) GetPayment(orderID string) (PaymentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.payments[orderID]
	if !ok {
		return PaymentRecord{}, ErrNotFound
	}
	return rec, nil
}

func (s *MemoryStore) SetPaymentStatus(orderID, status string, capturedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.payments[orderID]
	if !ok {
		return ErrNotFound
	}
	rec.Status = status
	if !capturedAt.IsZero() {
		rec.CapturedAt = capturedAt
	}
	s.payments[orderID] = rec
	return nil
}

func (s *MemoryStore) Close() error { return nil }
