package documents

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mmrzaf/mockagen/internal/domain"
	"github.com/mmrzaf/mockagen/internal/schema"
	"gopkg.in/yaml.v3"
)

var (
	ErrNotFound      = errors.New("document not found")
	ErrPathTraversal = errors.New("path escapes the documents directory")
)

type Repository interface {
	List() ([]*domain.Document, error)
	Get(id string) (*domain.Document, error)
	GetByPath(path string) (*domain.Document, error)
}

// FileRepository reads YAML and JSON documents from one directory tree.
// Files that fail schema validation are skipped by List and reported by
// GetByPath.
type FileRepository struct {
	baseDir   string
	validator *schema.Validator
}

func NewFileRepository(baseDir string, validator *schema.Validator) *FileRepository {
	return &FileRepository{baseDir: baseDir, validator: validator}
}

func (r *FileRepository) BaseDir() string { return r.baseDir }

func (r *FileRepository) List() ([]*domain.Document, error) {
	if _, err := os.Stat(r.baseDir); os.IsNotExist(err) {
		return []*domain.Document{}, nil
	}

	entries, err := os.ReadDir(r.baseDir)
	if err != nil {
		return nil, err
	}

	docs := make([]*domain.Document, 0)
	for _, entry := range entries {
		if entry.IsDir() || !isDocumentFile(entry.Name()) {
			continue
		}
		doc, err := r.load(entry.Name())
		if err != nil {
			continue
		}
		docs = append(docs, doc)
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

func (r *FileRepository) Get(id string) (*domain.Document, error) {
	docs, err := r.List()
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		if d.ID == id || d.Name == id {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// GetByPath loads a document by a path relative to the base directory. An
// absolute path is accepted only when it lies inside the base directory.
func (r *FileRepository) GetByPath(path string) (*domain.Document, error) {
	rel, err := r.relative(path)
	if err != nil {
		return nil, err
	}
	return r.load(rel)
}

func (r *FileRepository) relative(path string) (string, error) {
	base, err := filepath.Abs(r.baseDir)
	if err != nil {
		return "", err
	}
	target := path
	if !filepath.IsAbs(target) {
		target = filepath.Join(base, target)
	}
	target, err = filepath.Abs(target)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrPathTraversal, path)
	}
	return rel, nil
}

func (r *FileRepository) load(rel string) (*domain.Document, error) {
	data, err := os.ReadFile(filepath.Join(r.baseDir, rel))
	if err != nil {
		return nil, err
	}

	if r.validator != nil {
		if err := r.validator.ValidateYAML(data); err != nil {
			return nil, fmt.Errorf("%s: %w", rel, err)
		}
	}

	var doc domain.Document
	if filepath.Ext(rel) == ".json" {
		err = json.Unmarshal(data, &doc)
	} else {
		err = yaml.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rel, err)
	}

	if doc.ID == "" {
		doc.ID = strings.TrimSuffix(filepath.Base(rel), filepath.Ext(rel))
	}
	doc.SourcePath = filepath.ToSlash(rel)
	return &doc, nil
}

func isDocumentFile(name string) bool {
	switch filepath.Ext(name) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}
