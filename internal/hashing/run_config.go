package hashing

import (
	"github.com/mmrzaf/mockagen/internal/domain"
)

// RunFingerprint is everything that decides what a run writes and where.
type RunFingerprint struct {
	DocumentHash string
	Target       *domain.TargetConfig
	Mode         string
	Seed         int64
	RowCounts    map[string]int64
	Order        []string
}

// Hash returns the hex SHA-256 of the fingerprint's JSON form.
func (f RunFingerprint) Hash() (string, error) {
	payload := struct {
		Document string           `json:"document"`
		Kind     string           `json:"target_kind"`
		Schema   string           `json:"target_schema,omitempty"`
		DSN      string           `json:"target_dsn"`
		Mode     string           `json:"mode"`
		Seed     int64            `json:"seed"`
		Counts   map[string]int64 `json:"row_counts"`
		Order    []string         `json:"order,omitempty"`
	}{
		Document: f.DocumentHash,
		Mode:     f.Mode,
		Seed:     f.Seed,
		Counts:   f.RowCounts,
		Order:    f.Order,
	}
	if payload.Counts == nil {
		payload.Counts = map[string]int64{}
	}
	if t := f.Target; t != nil {
		payload.Kind, payload.Schema, payload.DSN = t.Kind, t.Schema, t.DSN
	}
	return digest(payload)
}
