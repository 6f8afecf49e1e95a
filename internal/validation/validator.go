package validation

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/mmrzaf/mockagen/internal/definitions"
	"github.com/mmrzaf/mockagen/internal/domain"
	"github.com/mmrzaf/mockagen/internal/generators"
	"github.com/mmrzaf/mockagen/internal/registry"
)

type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// sqlKeywords cannot name tables or columns since targets interpolate them
// into DDL.
var sqlKeywords = func() map[string]bool {
	m := make(map[string]bool)
	for _, w := range strings.Fields(`
		add all alter and any as asc between by case check column constraint
		create cross current_date current_time current_timestamp database
		default delete desc distinct do drop else end except exists false for
		foreign from full grant group having in index inner insert intersect
		into is join key left like limit natural not null offset on or order
		outer primary references returning revoke right schema select set
		table then to true truncate union unique update user using values
		view when where with`) {
		m[w] = true
	}
	return m
}()

// IsValidIdentifier reports whether s can be used as a table, column or
// schema name on every target.
func IsValidIdentifier(s string) bool {
	s = strings.TrimSpace(s)
	return identRe.MatchString(s) && !sqlKeywords[strings.ToLower(s)]
}

// CycleError reports identifiers that read each other, directly or not.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle: %s", strings.Join(e.Path, " -> "))
}

func (e *CycleError) Unwrap() error { return generators.ErrDependencyCycle }

// ValidateDocument checks the resolved document: its bindings must be
// acyclic with every reference bound, and every table must be writable.
func (v *Validator) ValidateDocument(res *definitions.Resolved) error {
	doc := res.Document
	if doc.Name == "" && doc.ID == "" {
		return errors.New("document needs an id or a name")
	}

	if err := v.ValidateBindings(res.Bindings); err != nil {
		return fmt.Errorf("definitions: %w", err)
	}

	tableNames := make(map[string]bool)
	for i := range doc.Tables {
		table := &doc.Tables[i]
		if err := v.ValidateTable(table, res.Bindings, tableNames); err != nil {
			return fmt.Errorf("table '%s': %w", table.Name, err)
		}
	}
	return nil
}

func (v *Validator) ValidateTable(table *domain.Table, bindings *registry.Bindings, tableNames map[string]bool) error {
	if table.Name == "" {
		return errors.New("table name is required")
	}
	if !IsValidIdentifier(table.Name) {
		return fmt.Errorf("invalid table identifier: %s", table.Name)
	}
	if tableNames[table.Name] {
		return fmt.Errorf("duplicate table name: %s", table.Name)
	}
	tableNames[table.Name] = true

	if table.TargetTable != "" && !IsValidIdentifier(table.TargetTable) {
		return fmt.Errorf("invalid target_table identifier: %s", table.TargetTable)
	}
	if table.Rows < 0 {
		return fmt.Errorf("rows must be >= 0, got %d", table.Rows)
	}
	if table.TableMode != "" && !IsValidMode(table.TableMode) {
		return fmt.Errorf("invalid table_mode: %s", table.TableMode)
	}
	if len(table.Columns) == 0 {
		return errors.New("table must have at least one column")
	}

	columnNames := make(map[string]bool)
	for _, col := range table.Columns {
		if err := validateColumn(&col, columnNames); err != nil {
			return fmt.Errorf("column '%s': %w", col.Name, err)
		}
	}

	if _, err := bindings.MakeColumnGenerator(table.ColumnIdentifiers()); err != nil {
		return err
	}
	return nil
}

func validateColumn(col *domain.Column, columnNames map[string]bool) error {
	if col.Name == "" {
		return errors.New("column name is required")
	}
	if !IsValidIdentifier(col.Name) {
		return fmt.Errorf("invalid column identifier: %s", col.Name)
	}
	if columnNames[col.Name] {
		return fmt.Errorf("duplicate column name: %s", col.Name)
	}
	columnNames[col.Name] = true

	if col.Type != "" && !isValidColumnType(col.Type) {
		return fmt.Errorf("invalid column type: %s", col.Type)
	}
	return nil
}

func isValidColumnType(t domain.ColumnType) bool {
	switch t {
	case domain.ColumnTypeInt, domain.ColumnTypeBigInt, domain.ColumnTypeFloat,
		domain.ColumnTypeDouble, domain.ColumnTypeString, domain.ColumnTypeText,
		domain.ColumnTypeTimestamp, domain.ColumnTypeDate, domain.ColumnTypeUUID:
		return true
	default:
		return false
	}
}

// ValidateBindings reports references to unbound identifiers (all of them at
// once) and dependency cycles.
func (v *Validator) ValidateBindings(bindings *registry.Bindings) error {
	var missing []string
	seen := make(map[string]bool)
	for _, def := range bindings.Definitions() {
		for _, dep := range def.Deps {
			if !bindings.Has(dep) && !seen[dep] {
				seen[dep] = true
				missing = append(missing, dep)
			}
		}
	}
	if len(missing) > 0 {
		return &registry.MissingIdentifiersError{Names: missing}
	}

	if cycle := findCycle(dependencyGraph(bindings)); cycle != nil {
		return &CycleError{Path: cycle}
	}
	return nil
}

func dependencyGraph(bindings *registry.Bindings) map[string][]string {
	graph := make(map[string][]string)
	for _, def := range bindings.Definitions() {
		graph[def.ID] = def.Deps
	}
	return graph
}

// findCycle returns the first cycle found, closed on its starting node, or
// nil.
func findCycle(graph map[string][]string) []string {
	nodes := make([]string, 0, len(graph))
	for n := range graph {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)

	visited := make(map[string]bool)
	recStack := make(map[string]bool)
	var path []string

	var dfs func(node string) []string
	dfs = func(node string) []string {
		visited[node] = true
		recStack[node] = true
		path = append(path, node)

		for _, neighbor := range graph[node] {
			if !visited[neighbor] {
				if c := dfs(neighbor); c != nil {
					return c
				}
			} else if recStack[neighbor] {
				for i, n := range path {
					if n == neighbor {
						return append(append([]string(nil), path[i:]...), neighbor)
					}
				}
			}
		}

		recStack[node] = false
		path = path[:len(path)-1]
		return nil
	}

	for _, node := range nodes {
		if !visited[node] {
			if c := dfs(node); c != nil {
				return c
			}
		}
	}
	return nil
}

// TopologicalSort orders identifiers so that each comes after everything it
// reads. Ties are broken alphabetically.
func TopologicalSort(bindings *registry.Bindings) ([]string, error) {
	graph := make(map[string][]string) // dependency -> dependents
	inDegree := make(map[string]int)

	defs := bindings.Definitions()
	for _, def := range defs {
		if _, ok := inDegree[def.ID]; !ok {
			inDegree[def.ID] = 0
		}
		for _, dep := range def.Deps {
			if !bindings.Has(dep) {
				continue
			}
			graph[dep] = append(graph[dep], def.ID)
			inDegree[def.ID]++
		}
	}

	queue := make([]string, 0)
	for name, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, name)
		}
	}
	sort.Strings(queue)

	result := make([]string, 0, len(defs))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)

		for _, dependent := range graph[node] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
		sort.Strings(queue)
	}

	if len(result) != len(defs) {
		return nil, fmt.Errorf("%w among definitions", generators.ErrDependencyCycle)
	}
	return result, nil
}

func (v *Validator) ValidateTarget(t *domain.TargetConfig) error {
	if t.Name == "" {
		return errors.New("target name is required")
	}
	if t.Kind == "" {
		return errors.New("target kind is required")
	}
	if t.DSN == "" {
		return errors.New("target dsn is required")
	}

	switch t.Kind {
	case domain.TargetKindPostgres:
		if t.Schema != "" && !IsValidIdentifier(t.Schema) {
			return fmt.Errorf("invalid target schema identifier: %s", t.Schema)
		}
	case domain.TargetKindSQLite, domain.TargetKindElasticsearch,
		domain.TargetKindCSV, domain.TargetKindTSV, domain.TargetKindJSON:
		if t.Schema != "" {
			return fmt.Errorf("%s targets must not set schema", t.Kind)
		}
	default:
		return fmt.Errorf("unsupported target kind: %s", t.Kind)
	}
	return nil
}

func (v *Validator) ValidateRunRequest(req *domain.RunRequest) error {
	hasDocumentID := req.DocumentID != ""
	hasDocument := req.Document != nil

	if !hasDocumentID && !hasDocument {
		return errors.New("either document_id or document must be provided")
	}
	if hasDocumentID && hasDocument {
		return errors.New("only one of document_id or document must be provided")
	}

	hasTargetID := req.TargetID != ""
	hasTarget := req.Target != nil

	if !hasTargetID && !hasTarget {
		return errors.New("either target_id or target must be provided")
	}
	if hasTargetID && hasTarget {
		return errors.New("only one of target_id or target must be provided")
	}

	if req.Mode == "" {
		return errors.New("mode is required")
	}
	if !IsValidMode(req.Mode) {
		return fmt.Errorf("invalid mode: %s", req.Mode)
	}

	if req.Scale != nil && *req.Scale <= 0 {
		return fmt.Errorf("scale must be > 0, got %v", *req.Scale)
	}
	for k, n := range req.TableCounts {
		if !IsValidIdentifier(k) {
			return fmt.Errorf("invalid table name in table_counts: %s", k)
		}
		if n < 0 {
			return fmt.Errorf("table_counts[%s] must be >= 0, got %d", k, n)
		}
	}
	for _, name := range req.IncludeTables {
		if !IsValidIdentifier(name) {
			return fmt.Errorf("invalid table name in include_tables: %s", name)
		}
	}
	for _, name := range req.ExcludeTables {
		if !IsValidIdentifier(name) {
			return fmt.Errorf("invalid table name in exclude_tables: %s", name)
		}
	}

	if req.Target != nil {
		if err := v.ValidateTarget(req.Target); err != nil {
			return fmt.Errorf("target validation failed: %w", err)
		}
	}
	return nil
}

func IsValidMode(mode string) bool {
	switch mode {
	case domain.TableModeCreate, domain.TableModeTruncate, domain.TableModeAppend:
		return true
	default:
		return false
	}
}
