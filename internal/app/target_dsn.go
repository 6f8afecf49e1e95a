package app

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/mmrzaf/mockagen/internal/domain"
)

// targetForRun returns a copy of base with the run's database applied. For
// postgres the database replaces the one in the DSN; for file targets it
// names a subdirectory of the output directory.
func targetForRun(base *domain.TargetConfig, database string) (*domain.TargetConfig, error) {
	if base == nil {
		return nil, fmt.Errorf("target is required")
	}
	t := *base
	if database != "" {
		t.Database = database
	}
	if t.Database == "" {
		return &t, nil
	}

	switch {
	case t.Kind == domain.TargetKindPostgres:
		t.DSN = postgresDSNWithDatabase(t.DSN, t.Database)
	case t.IsFile():
		if strings.ContainsAny(t.Database, `/\`) || t.Database == ".." {
			return nil, fmt.Errorf("invalid output subdirectory %q", t.Database)
		}
		t.DSN = filepath.Join(t.DSN, t.Database)
	case database != "":
		return nil, fmt.Errorf("%s targets do not take a database override", t.Kind)
	}
	return &t, nil
}

// postgresDSNWithDatabase handles both URL and keyword/value DSNs.
func postgresDSNWithDatabase(dsn, database string) string {
	dsn = strings.TrimSpace(dsn)
	if u, err := url.Parse(dsn); err == nil && u.Scheme != "" && u.Host != "" {
		u.Path = "/" + database
		return u.String()
	}

	fields := strings.Fields(dsn)
	out := fields[:0]
	for _, f := range fields {
		if key, _, ok := strings.Cut(f, "="); ok && strings.EqualFold(key, "dbname") {
			continue
		}
		out = append(out, f)
	}
	return strings.Join(append(out, "dbname="+database), " ")
}
