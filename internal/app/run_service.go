package app

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	mrand "math/rand"
	"sort"
	"sync"
	"time"

	"github.com/mmrzaf/mockagen/internal/definitions"
	"github.com/mmrzaf/mockagen/internal/domain"
	"github.com/mmrzaf/mockagen/internal/evaluator"
	"github.com/mmrzaf/mockagen/internal/exec"
	"github.com/mmrzaf/mockagen/internal/hashing"
	"github.com/mmrzaf/mockagen/internal/infra/repos/documents"
	"github.com/mmrzaf/mockagen/internal/infra/repos/runs"
	"github.com/mmrzaf/mockagen/internal/infra/repos/targets"
	"github.com/mmrzaf/mockagen/internal/logging"
	"github.com/mmrzaf/mockagen/internal/validation"
)

const (
	DefaultPreviewRows = 10
	MaxPreviewRows     = 1000
)

type RunService struct {
	documents   documents.Repository
	targets     targets.Reader
	runRepo     runs.Repository
	validator   *validation.Validator
	batchSize   int
	defaultMode string
	logger      *logging.Logger
	now         func() time.Time
	wg          sync.WaitGroup
}

func NewRunService(
	docRepo documents.Repository,
	targetRepo targets.Reader,
	runRepo runs.Repository,
	logger *logging.Logger,
	batchSize int,
) *RunService {
	return &RunService{
		documents:   docRepo,
		targets:     targetRepo,
		runRepo:     runRepo,
		validator:   validation.NewValidator(),
		batchSize:   batchSize,
		defaultMode: domain.TableModeCreate,
		logger:      logger.WithComponent("runs"),
		now:         time.Now,
	}
}

// WithDefaultMode sets the mode used when a request leaves it empty.
func (s *RunService) WithDefaultMode(mode string) *RunService {
	if mode != "" {
		s.defaultMode = mode
	}
	return s
}

// RunPlan is everything a run needs, resolved but not yet executed.
type RunPlan struct {
	DocumentID     string               `json:"document_id"`
	Target         *domain.TargetConfig `json:"target"`
	Seed           int64                `json:"seed"`
	Mode           string               `json:"mode"`
	Scale          float64              `json:"scale"`
	ResolvedCounts map[string]int64     `json:"resolved_counts"`
	ExecutionOrder []string             `json:"execution_order"`
	Warnings       []string             `json:"warnings,omitempty"`
	ConfigHash     string               `json:"config_hash"`

	Resolved *definitions.Resolved `json:"-"`
	Tables   []domain.Table        `json:"-"`
}

// LoadDocument reads a document by id, resolves its includes and validates
// the result.
func (s *RunService) LoadDocument(id string) (*definitions.Resolved, error) {
	doc, err := s.documents.Get(id)
	if err != nil {
		return nil, err
	}
	return s.ResolveDocument(doc)
}

func (s *RunService) ResolveDocument(doc *domain.Document) (*definitions.Resolved, error) {
	res, err := definitions.NewLoader(s.documents).WithClock(s.now).Resolve(doc)
	if err != nil {
		return nil, err
	}
	if err := s.validator.ValidateDocument(res); err != nil {
		return nil, fmt.Errorf("document validation failed: %w", err)
	}
	return res, nil
}

// PlanRun resolves a request without recording or executing anything.
func (s *RunService) PlanRun(req *domain.RunRequest) (*RunPlan, error) {
	r := *req
	if r.Mode == "" {
		r.Mode = s.defaultMode
	}
	if err := s.validator.ValidateRunRequest(&r); err != nil {
		return nil, fmt.Errorf("invalid run request: %w", err)
	}

	var res *definitions.Resolved
	var err error
	if r.DocumentID != "" {
		res, err = s.LoadDocument(r.DocumentID)
	} else {
		res, err = s.ResolveDocument(r.Document)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}

	targetCfg := r.Target
	if r.TargetID != "" {
		targetCfg, err = s.targets.Get(r.TargetID)
		if err != nil {
			return nil, fmt.Errorf("failed to load target: %w", err)
		}
	}
	if err := s.validator.ValidateTarget(targetCfg); err != nil {
		return nil, fmt.Errorf("target validation failed: %w", err)
	}

	runTarget, err := targetForRun(targetCfg, r.TargetDatabase)
	if err != nil {
		return nil, err
	}

	doc := res.Document
	plan := &RunPlan{
		DocumentID:     doc.ID,
		Target:         runTarget,
		Seed:           chooseSeed(r.Seed, doc.Seed),
		Mode:           r.Mode,
		Scale:          1,
		ResolvedCounts: make(map[string]int64),
		Resolved:       res,
	}
	if r.Scale != nil {
		plan.Scale = *r.Scale
	}

	selectTables(plan, doc.Tables, &r)
	if len(plan.Tables) == 0 {
		return nil, fmt.Errorf("document %s has no tables selected to generate", doc.ID)
	}

	docHash, err := hashing.HashDocument(doc, res.Included...)
	if err != nil {
		return nil, fmt.Errorf("failed to hash document: %w", err)
	}
	plan.ConfigHash, err = hashing.RunFingerprint{
		DocumentHash: docHash,
		Target:       plan.Target,
		Mode:         plan.Mode,
		Seed:         plan.Seed,
		RowCounts:    plan.ResolvedCounts,
		Order:        plan.ExecutionOrder,
	}.Hash()
	if err != nil {
		return nil, fmt.Errorf("failed to hash run config: %w", err)
	}
	return plan, nil
}

// selectTables applies include/exclude filters and row counts. Counts come
// from table_counts when given, otherwise from the table's rows times scale.
func selectTables(plan *RunPlan, tables []domain.Table, req *domain.RunRequest) {
	known := make(map[string]bool, len(tables))
	for _, t := range tables {
		known[t.Name] = true
	}
	include := make(map[string]bool, len(req.IncludeTables))
	for _, name := range req.IncludeTables {
		include[name] = true
	}
	exclude := make(map[string]bool, len(req.ExcludeTables))
	for _, name := range req.ExcludeTables {
		exclude[name] = true
	}

	for _, name := range req.IncludeTables {
		if !known[name] {
			plan.Warnings = append(plan.Warnings, fmt.Sprintf("include_tables: unknown table %q", name))
		}
	}
	for _, name := range req.ExcludeTables {
		if !known[name] {
			plan.Warnings = append(plan.Warnings, fmt.Sprintf("exclude_tables: unknown table %q", name))
		}
	}

	for _, t := range tables {
		if (len(include) > 0 && !include[t.Name]) || exclude[t.Name] {
			continue
		}
		if n, ok := req.TableCounts[t.Name]; ok {
			t.Rows = n
		} else if plan.Scale != 1 {
			t.Rows = int64(math.Round(float64(t.Rows) * plan.Scale))
		}
		plan.Tables = append(plan.Tables, t)
		plan.ResolvedCounts[t.Name] = t.Rows
		plan.ExecutionOrder = append(plan.ExecutionOrder, t.Name)
	}

	names := make([]string, 0, len(req.TableCounts))
	for name := range req.TableCounts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !known[name] {
			plan.Warnings = append(plan.Warnings, fmt.Sprintf("table_counts: unknown table %q", name))
		} else if _, ok := plan.ResolvedCounts[name]; !ok {
			plan.Warnings = append(plan.Warnings, fmt.Sprintf("table_counts: table %q is not selected", name))
		}
	}
}

// StartRun records a run and executes it in the background.
func (s *RunService) StartRun(req *domain.RunRequest) (*domain.Run, error) {
	plan, err := s.PlanRun(req)
	if err != nil {
		return nil, err
	}
	run, err := s.createRun(plan)
	if err != nil {
		return nil, err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_ = s.executeRun(context.Background(), run, plan)
	}()
	return run, nil
}

// Run records a run and executes it before returning its final state.
func (s *RunService) Run(ctx context.Context, req *domain.RunRequest) (*domain.Run, error) {
	plan, err := s.PlanRun(req)
	if err != nil {
		return nil, err
	}
	run, err := s.createRun(plan)
	if err != nil {
		return nil, err
	}
	execErr := s.executeRun(ctx, run, plan)

	final, err := s.runRepo.Get(run.ID)
	if err != nil {
		return nil, err
	}
	return final, execErr
}

// Wait blocks until every run started with StartRun has finished.
func (s *RunService) Wait() {
	s.wg.Wait()
}

func (s *RunService) createRun(plan *RunPlan) (*domain.Run, error) {
	doc := plan.Resolved.Document
	counts, err := json.Marshal(plan.ResolvedCounts)
	if err != nil {
		return nil, err
	}
	var total int64
	for _, n := range plan.ResolvedCounts {
		total += n
	}

	run := &domain.Run{
		DocumentID:          doc.ID,
		DocumentName:        doc.Name,
		DocumentVersion:     doc.Version,
		TargetID:            plan.Target.ID,
		TargetName:          plan.Target.Name,
		TargetKind:          plan.Target.Kind,
		Seed:                plan.Seed,
		Mode:                plan.Mode,
		ResolvedCounts:      counts,
		ConfigHash:          plan.ConfigHash,
		Status:              domain.RunStatusRunning,
		StartedAt:           s.now().UTC(),
		ProgressRowsTotal:   total,
		ProgressTablesTotal: len(plan.Tables),
	}
	if err := s.runRepo.Create(run); err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	s.logger.Infow("run.started", map[string]any{
		"run_id":   run.ID,
		"document": doc.ID,
		"target":   plan.Target.Name,
		"seed":     plan.Seed,
		"mode":     plan.Mode,
	})
	s.appendLog(run.ID, "info", fmt.Sprintf("started: %d tables, %d rows, seed %d", len(plan.Tables), total, plan.Seed))
	for _, w := range plan.Warnings {
		s.appendLog(run.ID, "warn", w)
	}
	return run, nil
}

// executeRun writes the plan and records the outcome. A panic inside a
// generator or target fails the run instead of the process.
func (s *RunService) executeRun(ctx context.Context, run *domain.Run, plan *RunPlan) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("run aborted: %v", r)
			s.failRun(run, err)
		}
	}()

	target, err := NewTarget(plan.Target)
	if err != nil {
		s.failRun(run, err)
		return err
	}

	tablesDone := 0
	executor := exec.NewExecutor(s.batchSize, s.logger).WithProgress(func(p domain.RunProgress) {
		if err := s.runRepo.UpdateProgress(run.ID, p); err != nil {
			s.logger.Warnw("run.progress_failed", map[string]any{"run_id": run.ID, "error": err})
		}
		if p.TablesDone > tablesDone {
			tablesDone = p.TablesDone
			s.appendLog(run.ID, "info", fmt.Sprintf("table %s done (%d/%d)", p.CurrentTable, p.TablesDone, p.TablesTotal))
		}
	})

	stats, err := executor.Execute(ctx, plan.Resolved.Bindings, plan.Tables, target, plan.Seed, plan.Mode)
	if err != nil {
		s.failRun(run, err)
		return err
	}

	if err := s.runRepo.UpdateStatus(run.ID, domain.RunStatusSuccess, "", stats); err != nil {
		s.logger.Error("Failed to update run %s: %v", run.ID, err)
	}
	s.appendLog(run.ID, "info", fmt.Sprintf("completed: %d tables, %d rows", stats.TablesGenerated, stats.TotalRows))
	s.logger.Infow("run.completed", map[string]any{
		"run_id":   run.ID,
		"tables":   stats.TablesGenerated,
		"rows":     stats.TotalRows,
		"duration": stats.DurationSeconds,
	})
	return nil
}

func (s *RunService) failRun(run *domain.Run, cause error) {
	s.logger.Errorw("run.failed", map[string]any{"run_id": run.ID, "error": cause})
	s.appendLog(run.ID, "error", cause.Error())
	if err := s.runRepo.UpdateStatus(run.ID, domain.RunStatusFailed, cause.Error(), nil); err != nil {
		s.logger.Error("Failed to update run %s: %v", run.ID, err)
	}
}

func (s *RunService) appendLog(runID, level, msg string) {
	if err := s.runRepo.AppendRunLog(runID, level, msg); err != nil {
		s.logger.Warnw("run.log_failed", map[string]any{"run_id": runID, "error": err})
	}
}

func (s *RunService) GetRun(id string) (*domain.Run, error) {
	return s.runRepo.Get(id)
}

func (s *RunService) ListRuns(limit int, status string) ([]*domain.Run, error) {
	return s.runRepo.List(limit, status)
}

func (s *RunService) ListRunLogs(id string, limit int) ([]*domain.RunLog, error) {
	if _, err := s.runRepo.Get(id); err != nil {
		return nil, err
	}
	return s.runRepo.ListRunLogs(id, limit)
}

// Preview is a handful of generated rows that were not written anywhere.
type Preview struct {
	DocumentID string           `json:"document_id"`
	Seed       int64            `json:"seed"`
	Columns    []string         `json:"columns"`
	Rows       [][]domain.Value `json:"rows"`
}

// Preview generates rows for the requested identifiers, or for every bound
// identifier when none are given.
func (s *RunService) Preview(req *domain.PreviewRequest) (*Preview, error) {
	if req.DocumentID == "" {
		return nil, errors.New("document_id is required")
	}
	n := req.Rows
	if n == 0 {
		n = DefaultPreviewRows
	}
	if n < 0 || n > MaxPreviewRows {
		return nil, fmt.Errorf("rows must be between 1 and %d, got %d", MaxPreviewRows, n)
	}

	res, err := s.LoadDocument(req.DocumentID)
	if err != nil {
		return nil, err
	}

	columns := req.Columns
	if len(columns) == 0 {
		columns = res.Bindings.List()
	}
	seed := chooseSeed(req.Seed, res.Document.Seed)

	rows, err := evaluator.GenerateRows(res.Bindings, columns, n, mrand.New(mrand.NewSource(seed)))
	if err != nil {
		return nil, err
	}
	return &Preview{DocumentID: res.Document.ID, Seed: seed, Columns: columns, Rows: rows}, nil
}

func (s *RunService) ListTargets() ([]*domain.TargetConfig, error) {
	return s.targets.List()
}

func (s *RunService) GetTarget(id string) (*domain.TargetConfig, error) {
	return s.targets.Get(id)
}

// TestTarget checks connectivity of a stored target and records the result
// when the repository keeps check history.
func (s *RunService) TestTarget(id string) (*domain.TargetCheck, error) {
	t, err := s.targets.Get(id)
	if err != nil {
		return nil, err
	}
	check, checkErr := CheckTarget(t)
	if store, ok := s.targets.(targets.Store); ok {
		if err := store.RecordCheck(check); err != nil {
			s.logger.Warnw("target.check_record_failed", map[string]any{"target": id, "error": err})
		}
	}
	return check, checkErr
}

// chooseSeed prefers the request seed, then the document seed, then a random
// one.
func chooseSeed(requested, document *int64) int64 {
	if requested != nil {
		return *requested
	}
	if document != nil {
		return *document
	}
	return generateSeed()
}

func generateSeed() int64 {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return int64(binary.LittleEndian.Uint64(b[:]) >> 1)
}
