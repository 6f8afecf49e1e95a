package targets

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mmrzaf/mockagen/internal/domain"
	"gopkg.in/yaml.v3"
)

var configExts = []string{".yaml", ".yml", ".json"}

// FileRepository reads target configs from YAML or JSON files in one
// directory. ${VAR} references in the DSN and options are expanded from the
// environment when a file is loaded, so secrets can stay out of the files.
type FileRepository struct {
	baseDir string
	getenv  func(string) string
}

func NewFileRepository(baseDir string) *FileRepository {
	return &FileRepository{baseDir: baseDir, getenv: os.Getenv}
}

// List returns every parseable target sorted by id. Unparseable files are
// skipped.
func (r *FileRepository) List() ([]*domain.TargetConfig, error) {
	entries, err := os.ReadDir(r.baseDir)
	if errors.Is(err, fs.ErrNotExist) {
		return []*domain.TargetConfig{}, nil
	}
	if err != nil {
		return nil, err
	}

	out := make([]*domain.TargetConfig, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !isConfigFile(entry.Name()) {
			continue
		}
		t, err := r.GetByPath(filepath.Join(r.baseDir, entry.Name()))
		if err != nil {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Get tries <id>.yaml, <id>.yml and <id>.json first, then matches id against
// the ids and names of every target in the directory.
func (r *FileRepository) Get(id string) (*domain.TargetConfig, error) {
	if id != "" && !strings.ContainsAny(id, `/\`) {
		for _, ext := range configExts {
			path := filepath.Join(r.baseDir, id+ext)
			if _, err := os.Stat(path); err == nil {
				return r.GetByPath(path)
			}
		}
	}

	list, err := r.List()
	if err != nil {
		return nil, err
	}
	for _, t := range list {
		if t.ID == id || t.Name == id {
			return t, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// GetByPath loads a single config file. The id defaults to the file name
// without its extension and the name defaults to the id.
func (r *FileRepository) GetByPath(path string) (*domain.TargetConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var t domain.TargetConfig
	if filepath.Ext(path) == ".json" {
		err = json.Unmarshal(data, &t)
	} else {
		err = yaml.Unmarshal(data, &t)
	}
	if err != nil {
		return nil, fmt.Errorf("parse target %s: %w", path, err)
	}

	if t.ID == "" {
		base := filepath.Base(path)
		t.ID = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if t.Name == "" {
		t.Name = t.ID
	}
	t.DSN = os.Expand(t.DSN, r.getenv)
	for k, v := range t.Options {
		t.Options[k] = os.Expand(v, r.getenv)
	}
	return &t, nil
}

func isConfigFile(name string) bool {
	ext := filepath.Ext(name)
	for _, e := range configExts {
		if ext == e {
			return true
		}
	}
	return false
}
