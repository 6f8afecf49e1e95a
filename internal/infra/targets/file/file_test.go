package file

import (
	"bufio"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/mmrzaf/mockagen/internal/domain"
)

func peopleTable() *domain.Table {
	return &domain.Table{
		Name:    "people",
		Columns: []domain.Column{{Name: "name"}, {Name: "age"}, {Name: "born"}},
	}
}

func peopleRows() [][]domain.Value {
	born := time.Date(1815, 12, 10, 0, 0, 0, 0, time.UTC)
	return [][]domain.Value{
		{domain.StringValue("Lovelace, Ada"), domain.IntValue(36), domain.DateValue(born)},
	}
}

func TestFileTarget_CSVAppendAndTruncate(t *testing.T) {
	tgt := NewFileTarget(t.TempDir(), FormatCSV)
	if err := tgt.Connect(); err != nil {
		t.Fatal(err)
	}
	table := peopleTable()
	if err := tgt.CreateTableIfNotExists(table); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if err := tgt.InsertBatch("people", table.ColumnNames(), peopleRows()); err != nil {
			t.Fatal(err)
		}
	}

	data, err := os.ReadFile(tgt.Path("people"))
	if err != nil {
		t.Fatal(err)
	}
	want := "name,age,born\n\"Lovelace, Ada\",36,1815-12-10\n\"Lovelace, Ada\",36,1815-12-10\n"
	if string(data) != want {
		t.Fatalf("unexpected csv:\n%s", data)
	}

	if err := tgt.CreateTableIfNotExists(table); err != nil {
		t.Fatal(err)
	}
	if err := tgt.TruncateTable("people"); err != nil {
		t.Fatal(err)
	}
	data, err = os.ReadFile(tgt.Path("people"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "name,age,born\n" {
		t.Fatalf("expected header only after truncate, got %q", data)
	}
}

func TestFileTarget_TSV(t *testing.T) {
	tgt := NewFileTarget(t.TempDir(), FormatTSV)
	if err := tgt.Connect(); err != nil {
		t.Fatal(err)
	}
	table := peopleTable()
	if err := tgt.CreateTableIfNotExists(table); err != nil {
		t.Fatal(err)
	}
	if err := tgt.InsertBatch("people", table.ColumnNames(), peopleRows()); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(tgt.Path("people"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(tgt.Path("people"), ".tsv") {
		t.Fatalf("unexpected path %s", tgt.Path("people"))
	}
	if string(data) != "name\tage\tborn\nLovelace, Ada\t36\t1815-12-10\n" {
		t.Fatalf("unexpected tsv: %q", data)
	}
}

func TestFileTarget_JSONLines(t *testing.T) {
	tgt := NewFileTarget(t.TempDir(), FormatJSON)
	if err := tgt.Connect(); err != nil {
		t.Fatal(err)
	}
	table := peopleTable()
	if err := tgt.CreateTableIfNotExists(table); err != nil {
		t.Fatal(err)
	}
	if err := tgt.InsertBatch("people", table.ColumnNames(), peopleRows()); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(tgt.Path("people"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		t.Fatal("expected one line")
	}
	var rec map[string]any
	if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
		t.Fatal(err)
	}
	if rec["name"] != "Lovelace, Ada" || rec["age"] != float64(36) || rec["born"] != "1815-12-10" {
		t.Fatalf("unexpected record %#v", rec)
	}
}

func TestFileTarget_RejectsUnknownFormat(t *testing.T) {
	if err := NewFileTarget(t.TempDir(), Format("xml")).Connect(); err == nil {
		t.Fatal("expected unsupported format error")
	}
}
