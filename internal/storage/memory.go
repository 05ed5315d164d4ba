package storage

import (
	"context"
	"errors"
	"sync"

	"channelflow/internal/flowgen"
	"channelflow/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	runs        map[string]model.RunRecord
	samples     map[string][]flowgen.Sample
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.runs = make(map[string]model.RunRecord)
	s.samples = make(map[string][]flowgen.Sample)
	return nil
}

func (s *MemoryStore) SaveRun(_ context.Context, run model.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errors.New("store is not initialized")
	}
	s.runs[run.ID] = run
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (model.RunRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	return run, ok, nil
}

func (s *MemoryStore) ListRuns(_ context.Context) ([]model.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]model.RunRecord, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, run)
	}
	sortRuns(runs)
	return runs, nil
}

func (s *MemoryStore) DeleteRun(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.runs, id)
	delete(s.samples, id)
	return nil
}

func (s *MemoryStore) SaveSamples(_ context.Context, runID string, samples []flowgen.Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errors.New("store is not initialized")
	}
	s.samples[runID] = append([]flowgen.Sample(nil), samples...)
	return nil
}

func (s *MemoryStore) GetSamples(_ context.Context, runID string) ([]flowgen.Sample, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	samples, ok := s.samples[runID]
	if !ok {
		return nil, false, nil
	}
	return append([]flowgen.Sample(nil), samples...), true, nil
}
