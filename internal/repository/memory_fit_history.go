package repository

import (
	"context"
	"sync"

	"CropVol/internal/domain/models"
	domrepo "CropVol/internal/domain/repository"
)

// MemoryFitHistory keeps the last max fits per region in process. Used when
// ClickHouse is disabled.
type MemoryFitHistory struct {
	mu   sync.RWMutex
	max  int
	fits map[string][]models.FitEvent
}

func NewMemoryFitHistory(max int) *MemoryFitHistory {
	if max <= 0 {
		max = 100
	}
	return &MemoryFitHistory{max: max, fits: make(map[string][]models.FitEvent)}
}

func (h *MemoryFitHistory) SaveFit(_ context.Context, ev models.FitEvent) error {
	key := ev.Dataset + "/" + ev.Region
	h.mu.Lock()
	defer h.mu.Unlock()
	list := append(h.fits[key], ev)
	if len(list) > h.max {
		list = list[len(list)-h.max:]
	}
	h.fits[key] = list
	return nil
}

func (h *MemoryFitHistory) RecentFits(_ context.Context, dataset, region string, limit int) ([]models.FitEvent, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	list := h.fits[dataset+"/"+region]
	if limit <= 0 || limit > len(list) {
		limit = len(list)
	}
	out := make([]models.FitEvent, 0, limit)
	for i := len(list) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, list[i])
	}
	return out, nil
}

var _ domrepo.FitHistory = (*MemoryFitHistory)(nil)
