// Package source loads raw Olist tables from a CSV directory, a SQL database
// or a MongoDB database.
package source

import (
	"context"
	"fmt"

	"github.com/op/go-logging"

	"github.com/WolfSchew/kaggle-olist/internal/config"
	"github.com/WolfSchew/kaggle-olist/internal/table"
)

var log = logging.MustGetLogger("source")

// Loader produces the raw tables of one snapshot.
type Loader interface {
	Load(ctx context.Context) (table.Tables, error)
}

// Kind classifies a load failure.
type Kind int

const (
	KindIO Kind = iota + 1
	KindParse
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindParse:
		return "parse"
	}
	return "unknown"
}

// LoadError carries the table and location a load failed on. Unwrap yields
// the underlying error unchanged.
type LoadError struct {
	Kind  Kind
	Table string
	Path  string
	Err   error
}

func (e *LoadError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("load %s table %q from %s: %v", e.Kind, e.Table, e.Path, e.Err)
	}
	return fmt.Sprintf("load %s %s: %v", e.Kind, e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

func ioError(name, path string, err error) error {
	return &LoadError{Kind: KindIO, Table: name, Path: path, Err: err}
}

func parseError(name, path string, err error) error {
	return &LoadError{Kind: KindParse, Table: name, Path: path, Err: err}
}

// Open returns the loader selected by cfg.
func Open(cfg *config.Config) (Loader, error) {
	tables := cfg.Tables
	if len(tables) == 0 {
		tables = table.Required
	}
	switch cfg.Source {
	case config.SourceCSV:
		return Dir{Path: cfg.DataDir}, nil
	case config.SourceSQLite:
		return SQL{Driver: DriverSQLite, DSN: cfg.DSN, Tables: tables}, nil
	case config.SourcePostgres:
		return SQL{Driver: DriverPostgres, DSN: cfg.DSN, Tables: tables}, nil
	case config.SourceMySQL:
		return SQL{Driver: DriverMySQL, DSN: cfg.DSN, Tables: tables}, nil
	case config.SourceMongo:
		return Mongo{URI: cfg.DSN, Database: cfg.MongoDatabase, Collections: tables}, nil
	}
	return nil, fmt.Errorf("unknown source %q", cfg.Source)
}
