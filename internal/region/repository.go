package region

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// Repository persists region summaries under a target name.
type Repository interface {
	// Save stores s under name, replacing any previous summary.
	Save(ctx context.Context, name string, s *Summary) error

	// Get retrieves the summary stored under name.
	Get(ctx context.Context, name string) (*Summary, error)

	// List returns the stored names in ascending order.
	List(ctx context.Context) ([]string, error)
}

// InMemoryRepository is an in-memory implementation of Repository.
// Summaries are stored encoded so callers never share feature storage.
type InMemoryRepository struct {
	mu        sync.RWMutex
	summaries map[string][]byte
}

// NewInMemoryRepository creates a new in-memory region repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		summaries: make(map[string][]byte),
	}
}

// Save stores a summary.
func (r *InMemoryRepository) Save(_ context.Context, name string, s *Summary) error {
	if err := validateName(name); err != nil {
		return err
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.summaries[name] = data
	return nil
}

// Get retrieves a summary by name.
func (r *InMemoryRepository) Get(_ context.Context, name string) (*Summary, error) {
	r.mu.RLock()
	data, ok := r.summaries[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSummaryNotFound, name)
	}

	var s Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	return &s, nil
}

// List returns the stored names.
func (r *InMemoryRepository) List(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.summaries))
	for name := range r.summaries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidTargetName)
	}
	return ValidateTargetName(name)
}
