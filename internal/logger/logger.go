// Package logger configures the process-wide go-logging backend.
package logger

import (
	"io"
	"os"

	"github.com/op/go-logging"
)

const format = `%{time:2006-01-02 15:04:05} %{level:.5s}     %{message}`

// Init parses the level name (DEBUG, INFO, WARNING, ERROR, ...) and installs
// a leveled backend writing to w, or stderr when w is nil.
func Init(level string, w io.Writer) error {
	if w == nil {
		w = os.Stderr
	}
	backend := logging.NewLogBackend(w, "", 0)
	formatted := logging.NewBackendFormatter(backend, logging.MustStringFormatter(format))

	leveled := logging.AddModuleLevel(formatted)
	lvl, err := logging.LogLevel(level)
	if err != nil {
		return err
	}
	leveled.SetLevel(lvl, "")

	logging.SetBackend(leveled)
	return nil
}
