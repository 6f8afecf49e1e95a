// Package file writes tables as CSV, TSV or JSON lines files, one file per
// table inside the target directory.
package file

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mmrzaf/mockagen/internal/domain"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatTSV  Format = "tsv"
	FormatJSON Format = "json"
)

type FileTarget struct {
	dir     string
	format  Format
	headers map[string][]string
}

func NewFileTarget(dir string, format Format) *FileTarget {
	return &FileTarget{dir: dir, format: format, headers: make(map[string][]string)}
}

func (t *FileTarget) Connect() error {
	switch t.format {
	case FormatCSV, FormatTSV, FormatJSON:
	default:
		return fmt.Errorf("unsupported file format: %s", t.format)
	}
	return os.MkdirAll(t.dir, 0o755)
}

func (t *FileTarget) Close() error { return nil }

// Path returns the file a table is written to.
func (t *FileTarget) Path(tableName string) string {
	ext := string(t.format)
	if t.format == FormatJSON {
		ext = "jsonl"
	}
	return filepath.Join(t.dir, tableName+"."+ext)
}

func (t *FileTarget) CreateTableIfNotExists(table *domain.Table) error {
	name := table.Destination()
	t.headers[name] = table.ColumnNames()

	_, err := os.Stat(t.Path(name))
	if err == nil {
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return t.writeHeader(name, os.O_CREATE|os.O_WRONLY|os.O_EXCL)
}

func (t *FileTarget) TruncateTable(tableName string) error {
	return t.writeHeader(tableName, os.O_CREATE|os.O_WRONLY|os.O_TRUNC)
}

func (t *FileTarget) writeHeader(tableName string, flag int) error {
	f, err := os.OpenFile(t.Path(tableName), flag, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if t.format == FormatJSON {
		return nil
	}
	header, ok := t.headers[tableName]
	if !ok {
		return nil
	}
	w := t.csvWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func (t *FileTarget) csvWriter(f *os.File) *csv.Writer {
	w := csv.NewWriter(f)
	if t.format == FormatTSV {
		w.Comma = '\t'
	}
	return w
}

func (t *FileTarget) InsertBatch(tableName string, columns []string, rows [][]domain.Value) error {
	if len(rows) == 0 {
		return nil
	}

	f, err := os.OpenFile(t.Path(tableName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if t.format == FormatJSON {
		enc := json.NewEncoder(f)
		for _, row := range rows {
			doc := make(map[string]any, len(columns))
			for i, col := range columns {
				doc[col] = row[i].Serializable()
			}
			if err := enc.Encode(doc); err != nil {
				return err
			}
		}
		return nil
	}

	w := t.csvWriter(f)
	record := make([]string, len(columns))
	for _, row := range rows {
		for i, val := range row {
			record[i] = val.String()
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
