package source

import (
	"bytes"
	"context"
	"os"
	"path/filepath"

	"github.com/WolfSchew/kaggle-olist/internal/table"
)

// Dir loads every CSV file of a directory. Files without the CSV extension
// are ignored. When two files normalize to the same key, the first in
// lexical order wins.
type Dir struct {
	Path string
}

func (d Dir) Load(ctx context.Context) (table.Tables, error) {
	entries, err := os.ReadDir(d.Path)
	if err != nil {
		return nil, ioError("", d.Path, err)
	}
	tables := table.Tables{}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.IsDir() {
			continue
		}
		key, ok := table.Key(e.Name())
		if !ok {
			continue
		}
		path := filepath.Join(d.Path, e.Name())
		if prev, dup := tables[key]; dup {
			log.Warningf("ignoring %s: table %q already loaded from %s", path, key, prev.Path)
			continue
		}
		t, err := loadCSVFile(key, path)
		if err != nil {
			return nil, err
		}
		log.Debugf("loaded %s: %d rows, %d columns", key, t.Len(), len(t.Headers()))
		tables[key] = t
	}
	return tables, nil
}

func loadCSVFile(key, path string) (*table.Table, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, ioError(key, path, err)
	}
	t, err := table.ReadCSV(key, path, bytes.NewReader(b))
	if err != nil {
		return nil, parseError(key, path, err)
	}
	return t, nil
}
