package source

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/WolfSchew/kaggle-olist/internal/table"
)

// database/sql driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
	DriverMySQL    = "mysql"
)

// SQL reads one database table per logical table with SELECT *. NULL cells
// become empty strings.
type SQL struct {
	Driver string
	DSN    string
	Tables []string
}

func (s SQL) Load(ctx context.Context) (table.Tables, error) {
	db, err := sql.Open(s.Driver, s.DSN)
	if err != nil {
		return nil, ioError("", s.Driver, err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return nil, ioError("", s.Driver, err)
	}

	tables := make(table.Tables, len(s.Tables))
	for _, name := range s.Tables {
		t, err := s.loadTable(ctx, db, name)
		if err != nil {
			return nil, err
		}
		log.Debugf("loaded %s from %s: %d rows", name, s.Driver, t.Len())
		tables[name] = t
	}
	return tables, nil
}

func (s SQL) loadTable(ctx context.Context, db *sql.DB, name string) (*table.Table, error) {
	location := s.Driver + ":" + name
	rows, err := db.QueryContext(ctx, "SELECT * FROM "+quoteIdent(s.Driver, name))
	if err != nil {
		return nil, ioError(name, location, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, ioError(name, location, err)
	}
	records := [][]string{cols}
	cells := make([]sql.NullString, len(cols))
	dest := make([]any, len(cols))
	for i := range cells {
		dest[i] = &cells[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, parseError(name, location, err)
		}
		rec := make([]string, len(cols))
		for i, c := range cells {
			if c.Valid {
				rec[i] = c.String
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, ioError(name, location, err)
	}

	t, err := table.FromRecords(name, location, records)
	if err != nil {
		return nil, parseError(name, location, err)
	}
	return t, nil
}

func quoteIdent(driver, s string) string {
	if driver == DriverMySQL {
		return "`" + strings.ReplaceAll(s, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// columnTypes gives the SQLite affinity of the numeric Olist columns; every
// other column is TEXT.
var columnTypes = map[string]string{
	"order_item_id":               "INTEGER",
	"review_score":                "INTEGER",
	"price":                       "REAL",
	"freight_value":               "REAL",
	"geolocation_lat":             "REAL",
	"geolocation_lng":             "REAL",
	"seller_zip_code_prefix":      "INTEGER",
	"customer_zip_code_prefix":    "INTEGER",
	"geolocation_zip_code_prefix": "INTEGER",
}

var indexedColumns = []string{"order_id", "customer_id", "seller_id", "review_id", "geolocation_zip_code_prefix"}

// WriteSQLite replaces the table named after t with its rows. Empty cells
// are stored as NULL.
func WriteSQLite(ctx context.Context, db *sql.DB, t *table.Table) error {
	cols := t.Headers()
	if len(cols) == 0 {
		return fmt.Errorf("table %q has no columns", t.Name)
	}
	name := quoteIdent(DriverSQLite, t.Name)

	defs := make([]string, 0, len(cols))
	qCols := make([]string, 0, len(cols))
	for _, c := range cols {
		typ := columnTypes[c]
		if typ == "" {
			typ = "TEXT"
		}
		defs = append(defs, fmt.Sprintf("%s %s", quoteIdent(DriverSQLite, c), typ))
		qCols = append(qCols, quoteIdent(DriverSQLite, c))
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS `+name); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `CREATE TABLE `+name+` (`+strings.Join(defs, ",")+`)`); err != nil {
		return err
	}
	ph := strings.TrimRight(strings.Repeat("?,", len(cols)), ",")
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO `+name+` (`+strings.Join(qCols, ",")+`) VALUES (`+ph+`)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	records := t.Records()
	for _, rec := range records[1:] {
		args := make([]any, len(rec))
		for i, v := range rec {
			if table.IsMissing(v) {
				args[i] = nil
				continue
			}
			args[i] = v
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return err
		}
	}
	for _, c := range indexedColumns {
		if !contains(cols, c) {
			continue
		}
		idx := quoteIdent(DriverSQLite, fmt.Sprintf("idx_%s_%s", t.Name, c))
		q := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s(%s)`, idx, name, quoteIdent(DriverSQLite, c))
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
