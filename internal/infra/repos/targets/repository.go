package targets

import (
	"errors"

	"github.com/mmrzaf/mockagen/internal/domain"
)

var ErrNotFound = errors.New("target not found")

// Reader is satisfied by both the file-backed and the DB-backed repositories.
type Reader interface {
	List() ([]*domain.TargetConfig, error)
	Get(id string) (*domain.TargetConfig, error)
}

// Store is the DB-backed repository managed through the API.
type Store interface {
	Reader
	Create(t *domain.TargetConfig) error
	Update(t *domain.TargetConfig) error
	Delete(id string) error

	RecordCheck(c *domain.TargetCheck) error
	ListChecks(targetID string, limit int) ([]*domain.TargetCheck, error)
}

// Chain reads from each repository in turn. List merges them, with earlier
// repositories winning on duplicate ids.
type Chain []Reader

func (c Chain) List() ([]*domain.TargetConfig, error) {
	seen := make(map[string]bool)
	out := make([]*domain.TargetConfig, 0)
	for _, r := range c {
		list, err := r.List()
		if err != nil {
			return nil, err
		}
		for _, t := range list {
			if seen[t.ID] {
				continue
			}
			seen[t.ID] = true
			out = append(out, t)
		}
	}
	return out, nil
}

func (c Chain) Get(id string) (*domain.TargetConfig, error) {
	for _, r := range c {
		t, err := r.Get(id)
		if err == nil {
			return t, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return nil, ErrNotFound
}
