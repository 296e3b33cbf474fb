package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/WolfSchew/kaggle-olist/internal/logger"
	"github.com/WolfSchew/kaggle-olist/internal/source"
	"github.com/WolfSchew/kaggle-olist/internal/table"
)

var (
	dataDir     = flag.String("data-dir", "data", "Directory of Olist CSV files")
	sqlitePath  = flag.String("sqlite", "", "SQLite output path (default <data-dir>/olist.sqlite)")
	profilePath = flag.String("profile", "", "Optional profile markdown output path")
	tableList   = flag.String("tables", "", "Comma-separated table keys to ingest (default: every CSV file)")
	logLevel    = flag.String("log-level", "INFO", "Log level")
)

func main() {
	flag.Parse()

	if err := logger.Init(*logLevel, nil); err != nil {
		fatalf("log level: %v", err)
	}
	outSQLite := *sqlitePath
	if outSQLite == "" {
		outSQLite = filepath.Join(*dataDir, "olist.sqlite")
	}

	tables, err := source.Dir{Path: *dataDir}.Load(context.Background())
	if err != nil {
		fatalf("load csv: %v", err)
	}
	tables, err = selectTables(tables, *tableList)
	if err != nil {
		fatalf("select tables: %v", err)
	}
	if err := writeSQLite(context.Background(), outSQLite, tables); err != nil {
		fatalf("write sqlite: %v", err)
	}
	if *profilePath != "" {
		if err := os.WriteFile(*profilePath, []byte(buildProfile(tables)), 0o644); err != nil {
			fatalf("write profile: %v", err)
		}
	}

	for _, name := range tables.Names() {
		fmt.Printf("Table %s: %s rows\n", name, fmtInt(tables[name].Len()))
	}
	fmt.Printf("SQLite: %s\n", outSQLite)
	if *profilePath != "" {
		fmt.Printf("Profile: %s\n", *profilePath)
	}
}

// selectTables keeps the comma-separated keys of list, or every table when
// list is empty.
func selectTables(tables table.Tables, list string) (table.Tables, error) {
	if strings.TrimSpace(list) == "" {
		return tables, nil
	}
	out := table.Tables{}
	for _, key := range strings.Split(list, ",") {
		key = strings.TrimSpace(key)
		t, err := tables.Get(key)
		if err != nil {
			return nil, err
		}
		out[key] = t
	}
	return out, nil
}

func writeSQLite(ctx context.Context, path string, tables table.Tables) error {
	_ = os.Remove(path)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	db, err := sql.Open(source.DriverSQLite, path)
	if err != nil {
		return err
	}
	defer db.Close()

	for _, name := range tables.Names() {
		if err := source.WriteSQLite(ctx, db, tables[name]); err != nil {
			return fmt.Errorf("table %s: %w", name, err)
		}
	}
	return nil
}

func buildProfile(tables table.Tables) string {
	lines := []string{
		"# Olist raw table profile",
		"",
		"## Dataset shape",
	}
	for _, name := range tables.Names() {
		t := tables[name]
		lines = append(lines, fmt.Sprintf("- `%s`: %s rows, %d columns", name, fmtInt(t.Len()), len(t.Headers())))
	}
	lines = append(lines, "")

	for _, name := range tables.Names() {
		t := tables[name]
		lines = append(lines, fmt.Sprintf("## Missingness: %s", name))
		type miss struct {
			col string
			pct float64
		}
		var misses []miss
		for _, col := range t.Headers() {
			vals, err := t.Column(col)
			if err != nil {
				continue
			}
			nulls := 0
			for _, v := range vals {
				if table.IsMissing(v) {
					nulls++
				}
			}
			misses = append(misses, miss{col, safeDiv(float64(nulls)*100, float64(len(vals)))})
		}
		sort.SliceStable(misses, func(i, j int) bool {
			if misses[i].pct != misses[j].pct {
				return misses[i].pct > misses[j].pct
			}
			return misses[i].col < misses[j].col
		})
		for _, m := range misses {
			lines = append(lines, fmt.Sprintf("- `%s`: %.1f%% null", m.col, m.pct))
		}
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func fmtInt(v int) string {
	s := strconv.Itoa(v)
	n := len(s)
	if n <= 3 {
		return s
	}
	var parts []string
	for n > 3 {
		parts = append([]string{s[n-3:]}, parts...)
		s = s[:n-3]
		n = len(s)
	}
	if s != "" {
		parts = append([]string{s}, parts...)
	}
	return strings.Join(parts, ",")
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

func fatalf(msg string, args ...any) {
	fmt.Fprintf(os.Stderr, msg+"\n", args...)
	os.Exit(1)
}
