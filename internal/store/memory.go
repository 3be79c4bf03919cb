package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"oligoscreen/internal/model"
)

type memEntry struct {
	info Info
	data []byte
}

// Memory keeps encoded runs in process memory. Intended for tests and
// one-shot pipelines.
type Memory struct {
	mu   sync.RWMutex
	objs map[string]memEntry
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory { return &Memory{objs: make(map[string]memEntry)} }

func (s *Memory) Driver() Driver { return DriverMemory }

func (s *Memory) Close() error { return nil }

func (s *Memory) Put(_ context.Context, key string, res *model.ScreeningResults) (Info, error) {
	k, err := sanitizeKey(key)
	if err != nil {
		return Info{}, err
	}
	data, err := encode(res)
	if err != nil {
		return Info{}, err
	}
	info := newInfo(k, res, len(data))
	s.mu.Lock()
	s.objs[k] = memEntry{info: info, data: data}
	s.mu.Unlock()
	return info, nil
}

func (s *Memory) Get(_ context.Context, key string) (*model.ScreeningResults, error) {
	k, err := sanitizeKey(key)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	e, ok := s.objs[k]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return decode(k, e.data)
}

func (s *Memory) Delete(_ context.Context, key string) (bool, error) {
	k, err := sanitizeKey(key)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objs[k]
	delete(s.objs, k)
	return ok, nil
}

func (s *Memory) List(_ context.Context, prefix string) ([]Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Info
	for k, e := range s.objs {
		if strings.HasPrefix(k, prefix) {
			out = append(out, e.info)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
