package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, SourceCSV, cfg.Source)
	assert.Equal(t, "data", cfg.DataDir)
	assert.True(t, cfg.IsDelivered)
	assert.False(t, cfg.WithDistance)
	assert.Positive(t, cfg.DistanceWorkers)
	assert.Equal(t, "INFO", cfg.LogLevel)
}

func TestLoadFileEnvAndFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "olist.yaml")
	doc := "source: sqlite\ndsn: file.db\nwith-distance: true\ndistance-workers: 2\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	t.Setenv("OLIST_DISTANCE_WORKERS", "3")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Bool("is-delivered", true, "")
	require.NoError(t, flags.Parse([]string{"--is-delivered=false"}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)
	assert.Equal(t, SourceSQLite, cfg.Source)
	assert.Equal(t, "file.db", cfg.DSN)
	assert.True(t, cfg.WithDistance)
	assert.Equal(t, 3, cfg.DistanceWorkers)
	assert.False(t, cfg.IsDelivered)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"csv", Config{Source: SourceCSV, DataDir: "d", DistanceWorkers: 1}, true},
		{"csv without dir", Config{Source: SourceCSV, DistanceWorkers: 1}, false},
		{"postgres without dsn", Config{Source: SourcePostgres, DistanceWorkers: 1}, false},
		{"mongo", Config{Source: SourceMongo, DSN: "mongodb://x", MongoDatabase: "olist", DistanceWorkers: 1}, true},
		{"unknown", Config{Source: "parquet", DistanceWorkers: 1}, false},
		{"no workers", Config{Source: SourceCSV, DataDir: "d"}, false},
	}
	for _, c := range cases {
		err := c.cfg.Validate()
		if c.ok {
			assert.NoError(t, err, c.name)
		} else {
			assert.Error(t, err, c.name)
		}
	}
}
