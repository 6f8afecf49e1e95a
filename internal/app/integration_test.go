package app

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mmrzaf/mockagen/internal/domain"
	"github.com/mmrzaf/mockagen/internal/generators"
	"github.com/mmrzaf/mockagen/internal/infra/repos/documents"
	"github.com/mmrzaf/mockagen/internal/infra/repos/runs"
	"github.com/mmrzaf/mockagen/internal/infra/repos/targets"
	"github.com/mmrzaf/mockagen/internal/logging"
	"github.com/mmrzaf/mockagen/internal/schema"
)

const shopDocument = `id: shop
name: Shop
version: "1"
seed: 99
include: [shared/regions.yaml]
definitions:
  - id: order_id
    value: {uuid: true}
  - id: quantity
    value: {int: [1, 9]}
  - id: channel
    values:
      - {weight: 70, literal: web}
      - {literal: store}
  - id: label
    value:
      join: [{ref: channel}, {literal: "-"}, {ref: region}]
tables:
  - name: orders
    rows: 10
    columns:
      - {name: id, source: order_id, type: uuid}
      - {name: quantity, type: int}
      - {name: label, type: string}
  - name: regions
    rows: 4
    columns:
      - {name: region, type: string}
`

const regionsDocument = `id: regions
name: Regions
definitions:
  - id: region
    values:
      - {literal: north}
      - {literal: south}
`

type testEnv struct {
	svc       *RunService
	runRepo   *runs.SQLiteRepository
	targetDB  *targets.DBRepository
	dir       string
	outputDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	docDir := filepath.Join(dir, "documents")
	if err := os.MkdirAll(filepath.Join(docDir, "shared"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(docDir, "shop.yaml"), []byte(shopDocument), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(docDir, "shared", "regions.yaml"), []byte(regionsDocument), 0o644); err != nil {
		t.Fatal(err)
	}

	validator, err := schema.NewValidator()
	if err != nil {
		t.Fatal(err)
	}
	runRepo := runs.NewSQLiteRepository(filepath.Join(dir, "runs.db"))
	if err := runRepo.Init(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = runRepo.Close() })

	targetDB := targets.NewSQLiteRepository(runRepo.DB())
	logger := logging.NewLoggerWithWriter("error", io.Discard)
	svc := NewRunService(documents.NewFileRepository(docDir, validator), targetDB, runRepo, logger, 3)

	return &testEnv{svc: svc, runRepo: runRepo, targetDB: targetDB, dir: dir, outputDir: filepath.Join(dir, "out")}
}

func (e *testEnv) csvTarget(t *testing.T) *domain.TargetConfig {
	t.Helper()
	tgt := &domain.TargetConfig{Name: "out-csv", Kind: domain.TargetKindCSV, DSN: e.outputDir}
	if err := e.targetDB.Create(tgt); err != nil {
		t.Fatal(err)
	}
	return tgt
}

func TestPlanRun_ScaleAndCounts(t *testing.T) {
	env := newTestEnv(t)
	tgt := env.csvTarget(t)

	scale := 2.0
	plan, err := env.svc.PlanRun(&domain.RunRequest{
		DocumentID:  "shop",
		TargetID:    tgt.ID,
		Scale:       &scale,
		TableCounts: map[string]int64{"regions": 7, "unknown": 3},
	})
	if err != nil {
		t.Fatal(err)
	}
	if plan.ResolvedCounts["orders"] != 20 {
		t.Fatalf("expected scaled orders count, got %v", plan.ResolvedCounts)
	}
	if plan.ResolvedCounts["regions"] != 7 {
		t.Fatalf("expected explicit table_counts to win, got %v", plan.ResolvedCounts)
	}
	if strings.Join(plan.ExecutionOrder, ",") != "orders,regions" {
		t.Fatalf("unexpected execution order: %v", plan.ExecutionOrder)
	}
	if len(plan.Warnings) != 1 || !strings.Contains(plan.Warnings[0], "unknown") {
		t.Fatalf("expected one warning for the unknown table, got %v", plan.Warnings)
	}
	if plan.Seed != 99 {
		t.Fatalf("expected document seed, got %d", plan.Seed)
	}
	if plan.Mode != domain.TableModeCreate {
		t.Fatalf("expected default mode, got %q", plan.Mode)
	}
	if plan.ConfigHash == "" {
		t.Fatal("expected config hash")
	}

	list, err := env.svc.ListRuns(10, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Fatalf("plan should not create run rows; got %d", len(list))
	}
}

func TestPlanRun_IncludeExcludeTables(t *testing.T) {
	env := newTestEnv(t)
	tgt := env.csvTarget(t)
	seed := int64(5)

	plan, err := env.svc.PlanRun(&domain.RunRequest{
		DocumentID:    "shop",
		TargetID:      tgt.ID,
		Seed:          &seed,
		IncludeTables: []string{"orders", "regions"},
		ExcludeTables: []string{"regions"},
		TableCounts:   map[string]int64{"regions": 77},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.ExecutionOrder) != 1 || plan.ExecutionOrder[0] != "orders" {
		t.Fatalf("expected only orders, got %v", plan.ExecutionOrder)
	}
	if _, ok := plan.ResolvedCounts["regions"]; ok {
		t.Fatalf("excluded table should not be counted: %v", plan.ResolvedCounts)
	}
	if len(plan.Warnings) == 0 {
		t.Fatal("expected warning for count on excluded table")
	}
	if plan.Seed != 5 {
		t.Fatalf("expected request seed to win, got %d", plan.Seed)
	}

	_, err = env.svc.PlanRun(&domain.RunRequest{DocumentID: "shop", TargetID: tgt.ID, ExcludeTables: []string{"orders", "regions"}})
	if err == nil {
		t.Fatal("expected error when no tables are selected")
	}
}

func TestPlanRun_RejectsBrokenDocument(t *testing.T) {
	env := newTestEnv(t)
	doc := &domain.Document{
		ID:   "inline",
		Name: "inline",
		Definitions: []domain.Definition{
			{ID: "a", Value: &domain.ValueSpec{Ref: "b"}},
		},
		Tables: []domain.Table{{Name: "t", Rows: 1, Columns: []domain.Column{{Name: "a"}}}},
	}
	_, err := env.svc.PlanRun(&domain.RunRequest{
		Document: doc,
		Target:   &domain.TargetConfig{Name: "x", Kind: domain.TargetKindCSV, DSN: env.outputDir},
	})
	if err == nil || !strings.Contains(err.Error(), "b") {
		t.Fatalf("expected unbound identifier error, got %v", err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestRun_WritesReproducibleCSV(t *testing.T) {
	env := newTestEnv(t)
	tgt := env.csvTarget(t)
	req := &domain.RunRequest{DocumentID: "shop", TargetID: tgt.ID, Mode: domain.TableModeTruncate}

	run, err := env.svc.Run(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if run.Status != domain.RunStatusSuccess || run.CompletedAt == nil {
		t.Fatalf("expected success, got %#v", run)
	}
	if run.ProgressRowsGenerated != 14 || run.ProgressTablesDone != 2 {
		t.Fatalf("unexpected progress: %#v", run)
	}

	first := readFile(t, filepath.Join(env.outputDir, "orders.csv"))
	lines := strings.Split(strings.TrimSpace(first), "\n")
	if len(lines) != 11 || lines[0] != "id,quantity,label" {
		t.Fatalf("unexpected csv:\n%s", first)
	}
	for _, line := range lines[1:] {
		label := line[strings.LastIndex(line, ",")+1:]
		if !strings.HasSuffix(label, "-north") && !strings.HasSuffix(label, "-south") {
			t.Fatalf("label %q does not use the included region", label)
		}
	}

	if _, err := env.svc.Run(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	if second := readFile(t, filepath.Join(env.outputDir, "orders.csv")); second != first {
		t.Fatalf("same seed should give the same output:\n%s\nvs\n%s", first, second)
	}

	logs, err := env.svc.ListRunLogs(run.ID, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) == 0 || !strings.Contains(logs[0].Message, "14 rows") {
		t.Fatalf("unexpected run logs: %+v", logs)
	}
	tableLogs := 0
	for _, l := range logs {
		if strings.HasPrefix(l.Message, "table ") {
			tableLogs++
		}
	}
	if tableLogs != 2 {
		t.Fatalf("expected one log per table, got %d: %+v", tableLogs, logs)
	}
	if !strings.HasPrefix(logs[len(logs)-1].Message, "started:") {
		t.Fatalf("expected oldest log to be the start entry, got %+v", logs[len(logs)-1])
	}
}

func TestStartRun_CompletesSuccess_SQLite(t *testing.T) {
	env := newTestEnv(t)
	dbPath := filepath.Join(env.dir, "target.db")

	run, err := env.svc.StartRun(&domain.RunRequest{
		DocumentID: "shop",
		Target:     &domain.TargetConfig{Name: "inline-sqlite", Kind: domain.TargetKindSQLite, DSN: dbPath},
	})
	if err != nil {
		t.Fatal(err)
	}
	if run == nil || run.ID == "" {
		t.Fatalf("expected run id, got %#v", run)
	}
	env.svc.Wait()

	cur, err := env.svc.GetRun(run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if cur.Status != domain.RunStatusSuccess {
		t.Fatalf("run did not succeed: status=%s error=%s", cur.Status, cur.Error)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM orders`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 10 {
		t.Fatalf("expected 10 orders, got %d", n)
	}
}

func TestRun_RecordsFailure(t *testing.T) {
	env := newTestEnv(t)
	blocker := filepath.Join(env.dir, "not-a-dir")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	run, err := env.svc.Run(context.Background(), &domain.RunRequest{
		DocumentID: "shop",
		Target:     &domain.TargetConfig{Name: "bad", Kind: domain.TargetKindJSON, DSN: blocker},
	})
	if err == nil {
		t.Fatal("expected run error")
	}
	if run == nil || run.Status != domain.RunStatusFailed || run.Error == "" {
		t.Fatalf("expected recorded failure, got %#v", run)
	}

	failed, err := env.svc.ListRuns(10, string(domain.RunStatusFailed))
	if err != nil {
		t.Fatal(err)
	}
	if len(failed) != 1 {
		t.Fatalf("expected one failed run, got %d", len(failed))
	}
}

func TestExecuteRun_PanicFailsRun(t *testing.T) {
	env := newTestEnv(t)
	tgt := env.csvTarget(t)

	plan, err := env.svc.PlanRun(&domain.RunRequest{DocumentID: "shop", TargetID: tgt.ID})
	if err != nil {
		t.Fatal(err)
	}
	// An alternation with no candidates cannot come out of the builder and
	// panics when drawn from.
	if err := plan.Resolved.Bindings.Add("broken", &generators.Alternation{}); err != nil {
		t.Fatal(err)
	}
	plan.Tables[0].Columns = append(plan.Tables[0].Columns, domain.Column{Name: "broken", Type: domain.ColumnTypeString})

	run, err := env.svc.createRun(plan)
	if err != nil {
		t.Fatal(err)
	}
	if err := env.svc.executeRun(context.Background(), run, plan); err == nil || !strings.Contains(err.Error(), "run aborted") {
		t.Fatalf("expected aborted run error, got %v", err)
	}

	got, err := env.svc.GetRun(run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.RunStatusFailed || !strings.Contains(got.Error, "run aborted") {
		t.Fatalf("expected failed run, got status=%s error=%q", got.Status, got.Error)
	}
}

func TestPreview(t *testing.T) {
	env := newTestEnv(t)
	seed := int64(3)

	p, err := env.svc.Preview(&domain.PreviewRequest{DocumentID: "shop", Columns: []string{"label", "quantity"}, Rows: 5, Seed: &seed})
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Rows) != 5 || len(p.Rows[0]) != 2 {
		t.Fatalf("unexpected preview shape: %#v", p)
	}

	again, err := env.svc.Preview(&domain.PreviewRequest{DocumentID: "shop", Columns: []string{"label", "quantity"}, Rows: 5, Seed: &seed})
	if err != nil {
		t.Fatal(err)
	}
	for i := range p.Rows {
		for j := range p.Rows[i] {
			if !p.Rows[i][j].Equal(again.Rows[i][j]) {
				t.Fatalf("preview not reproducible at %d,%d", i, j)
			}
		}
	}

	all, err := env.svc.Preview(&domain.PreviewRequest{DocumentID: "shop"})
	if err != nil {
		t.Fatal(err)
	}
	if len(all.Rows) != DefaultPreviewRows || len(all.Columns) != 5 {
		t.Fatalf("expected every identifier and default rows, got %d columns %d rows", len(all.Columns), len(all.Rows))
	}
	if all.Seed != 99 {
		t.Fatalf("expected document seed, got %d", all.Seed)
	}

	if _, err := env.svc.Preview(&domain.PreviewRequest{DocumentID: "shop", Columns: []string{"nope"}}); err == nil {
		t.Fatal("expected unbound identifier error")
	}
	if _, err := env.svc.Preview(&domain.PreviewRequest{DocumentID: "missing"}); !errors.Is(err, documents.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTestTarget_RecordsCheck(t *testing.T) {
	env := newTestEnv(t)
	tgt := &domain.TargetConfig{Name: "sqlite1", Kind: domain.TargetKindSQLite, DSN: filepath.Join(env.dir, "check.db")}
	if err := env.targetDB.Create(tgt); err != nil {
		t.Fatal(err)
	}

	check, err := env.svc.TestTarget(tgt.ID)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !check.OK || !check.Capabilities.CanInsert || check.ServerVer == "" {
		t.Fatalf("unexpected check: %#v", check)
	}

	history, err := env.targetDB.ListChecks(tgt.ID, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 || !history[0].OK {
		t.Fatalf("expected recorded check, got %#v", history)
	}
}

func TestCheckTarget_FileTargetLeavesOutputAlone(t *testing.T) {
	dir := t.TempDir()
	check, err := CheckTarget(&domain.TargetConfig{ID: "f", Name: "f", Kind: domain.TargetKindTSV, DSN: dir})
	if err != nil {
		t.Fatal(err)
	}
	if !check.OK || !check.Capabilities.CanTruncate {
		t.Fatalf("unexpected check: %#v", check)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no files left in %s, got %d", dir, len(entries))
	}
}

func TestOpenStores_MergesFileAndDBTargets(t *testing.T) {
	dir := t.TempDir()
	targetsDir := filepath.Join(dir, "targets")
	if err := os.MkdirAll(targetsDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(targetsDir, "files.yaml"), []byte("name: files\nkind: csv\ndsn: ./out\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	runRepo, reader, err := OpenStores(StoreConfig{TargetsDir: targetsDir, RunsDBPath: filepath.Join(dir, "meta", "runs.db")})
	if err != nil {
		t.Fatal(err)
	}
	defer runRepo.Close()

	store, ok := reader.(targets.Store)
	if !ok {
		t.Fatal("expected a writable target store")
	}
	if err := store.Create(&domain.TargetConfig{ID: "db1", Name: "db1", Kind: domain.TargetKindSQLite, DSN: filepath.Join(dir, "x.db")}); err != nil {
		t.Fatal(err)
	}

	list, err := reader.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != "files" || list[1].ID != "db1" {
		t.Fatalf("unexpected targets: %#v", list)
	}
	if _, err := reader.Get("db1"); err != nil {
		t.Fatalf("expected db target: %v", err)
	}
}
