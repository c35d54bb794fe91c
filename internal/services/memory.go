package services

import (
	"context"
	"sync"
)

// MemoryCatalog is an in-process Catalog.
type MemoryCatalog struct {
	mu         sync.RWMutex
	services   map[string]Service
	promotions map[string]Promotion
}

func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		services:   make(map[string]Service),
		promotions: make(map[string]Promotion),
	}
}

// PutService adds or replaces a service.
func (m *MemoryCatalog) PutService(svc Service) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.services[svc.ID] = svc
}

// PutPromotion adds or replaces a promotion.
func (m *MemoryCatalog) PutPromotion(p Promotion) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.promotions[p.ID] = p
}

func (m *MemoryCatalog) Service(ctx context.Context, id string) (Service, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	svc, ok := m.services[id]
	return svc, ok, nil
}

func (m *MemoryCatalog) Promotion(ctx context.Context, id string) (Promotion, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.promotions[id]
	return p, ok, nil
}
