package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/mmrzaf/mockagen/internal/domain"
)

// HashDocument fingerprints a document together with the documents it
// includes. Struct fields marshal in declaration order and maps with sorted
// keys, so the JSON form is canonical.
func HashDocument(doc *domain.Document, included ...*domain.Document) (string, error) {
	return digest(canonicalDocument(doc, included))
}

func digest(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func canonicalDocument(doc *domain.Document, included []*domain.Document) map[string]interface{} {
	result := map[string]interface{}{
		"name":        doc.Name,
		"definitions": doc.Definitions,
		"tables":      doc.Tables,
	}
	if doc.ID != "" {
		result["id"] = doc.ID
	}
	if doc.Version != "" {
		result["version"] = doc.Version
	}
	if doc.Description != "" {
		result["description"] = doc.Description
	}
	if doc.Seed != nil {
		result["seed"] = *doc.Seed
	}
	if len(included) > 0 {
		inc := make([]map[string]interface{}, len(included))
		for i, d := range included {
			inc[i] = canonicalDocument(d, nil)
		}
		result["included"] = inc
	}
	return result
}
