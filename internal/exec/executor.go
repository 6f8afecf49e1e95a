package exec

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"time"

	"github.com/mmrzaf/mockagen/internal/domain"
	"github.com/mmrzaf/mockagen/internal/logging"
	"github.com/mmrzaf/mockagen/internal/registry"
)

type Target interface {
	Connect() error
	Close() error
	CreateTableIfNotExists(table *domain.Table) error
	TruncateTable(tableName string) error
	InsertBatch(tableName string, columns []string, rows [][]domain.Value) error
}

const DefaultBatchSize = 1000

type Executor struct {
	batchSize  int
	logger     *logging.Logger
	onProgress func(domain.RunProgress)
}

func NewExecutor(batchSize int, logger *logging.Logger) *Executor {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Executor{batchSize: batchSize, logger: logger.WithComponent("executor")}
}

// WithProgress registers fn to be called after every inserted batch.
func (e *Executor) WithProgress(fn func(domain.RunProgress)) *Executor {
	e.onProgress = fn
	return e
}

func (e *Executor) report(p domain.RunProgress) {
	if e.onProgress != nil {
		e.onProgress(p)
	}
}

// TableSeed derives the seed of one table's random stream from the run seed,
// so adding or reordering tables leaves the others' output unchanged.
func TableSeed(seed int64, tableName string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(tableName))
	return seed ^ int64(h.Sum64())
}

// Execute writes every table in order. The context is checked between
// batches.
func (e *Executor) Execute(ctx context.Context, bindings *registry.Bindings, tables []domain.Table, target Target, seed int64, mode string) (*domain.RunStats, error) {
	if err := target.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to target: %w", err)
	}
	defer target.Close()

	runStart := time.Now()
	stats := &domain.RunStats{
		TableStats: make([]domain.TableRunStats, 0, len(tables)),
	}
	progress := domain.RunProgress{TablesTotal: len(tables)}
	for _, t := range tables {
		progress.RowsTotal += t.Rows
	}

	for i := range tables {
		table := &tables[i]
		startTime := time.Now()
		progress.CurrentTable = table.Name

		rows, err := e.executeTable(ctx, bindings, table, target, seed, mode, &progress)
		if err != nil {
			return nil, err
		}

		duration := time.Since(startTime)
		stats.TableStats = append(stats.TableStats, domain.TableRunStats{
			TableName:       table.Name,
			RowsGenerated:   rows,
			DurationSeconds: duration.Seconds(),
		})
		stats.TotalRows += rows
		progress.TablesDone++
		e.report(progress)
		e.logger.Infow("table.generated", map[string]any{
			"table":    table.Name,
			"rows":     rows,
			"duration": duration.String(),
		})
	}

	stats.TablesGenerated = len(tables)
	stats.DurationSeconds = time.Since(runStart).Seconds()
	return stats, nil
}

func (e *Executor) executeTable(ctx context.Context, bindings *registry.Bindings, table *domain.Table, target Target, seed int64, mode string, progress *domain.RunProgress) (int64, error) {
	tableMode := mode
	if table.TableMode != "" {
		tableMode = table.TableMode
	}
	if tableMode == "" {
		tableMode = domain.TableModeCreate
	}

	dest := table.Destination()
	switch tableMode {
	case domain.TableModeCreate:
		if err := target.CreateTableIfNotExists(table); err != nil {
			return 0, fmt.Errorf("failed to create table for '%s': %w", table.Name, err)
		}
	case domain.TableModeTruncate:
		if err := target.CreateTableIfNotExists(table); err != nil {
			return 0, fmt.Errorf("failed to create table for '%s': %w", table.Name, err)
		}
		if err := target.TruncateTable(dest); err != nil {
			return 0, fmt.Errorf("failed to truncate table for '%s': %w", table.Name, err)
		}
	case domain.TableModeAppend:
	default:
		return 0, fmt.Errorf("unknown table mode: %s", tableMode)
	}

	cg, err := bindings.MakeColumnGenerator(table.ColumnIdentifiers())
	if err != nil {
		return 0, fmt.Errorf("table '%s': %w", table.Name, err)
	}

	rng := rand.New(rand.NewSource(TableSeed(seed, table.Name)))
	columnNames := table.ColumnNames()
	batch := make([][]domain.Value, 0, min(int64(e.batchSize), max(table.Rows, 1)))

	for rowIdx := int64(0); rowIdx < table.Rows; rowIdx++ {
		row, err := cg.GenerateRow(rng)
		if err != nil {
			return 0, fmt.Errorf("table '%s', row %d: %w", table.Name, rowIdx, err)
		}
		batch = append(batch, row)

		if len(batch) >= e.batchSize {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
			if err := target.InsertBatch(dest, columnNames, batch); err != nil {
				return 0, fmt.Errorf("failed to insert batch for '%s': %w", table.Name, err)
			}
			progress.RowsGenerated += int64(len(batch))
			e.report(*progress)
			e.logger.Debugw("batch.inserted", map[string]any{"table": table.Name, "rows": rowIdx + 1})
			batch = batch[:0]
		}
	}

	if len(batch) > 0 {
		if err := target.InsertBatch(dest, columnNames, batch); err != nil {
			return 0, fmt.Errorf("failed to insert final batch for '%s': %w", table.Name, err)
		}
		progress.RowsGenerated += int64(len(batch))
	}
	return table.Rows, nil
}
