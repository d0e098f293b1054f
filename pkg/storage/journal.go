package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/uhyunpark/hyperdex/pkg/app/core/events"
)

// FileJournal appends every event as one JSON line. It is an audit trail for
// indexers, not a recovery log: state is restored from Pebble.
type FileJournal struct {
	mu  sync.Mutex
	f   *os.File
	log *zap.SugaredLogger
}

func NewFileJournal(path string, log *zap.Logger) (*FileJournal, error) {
	// Ensure journal directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrapf(err, "create journal directory for %s", path)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "open journal %s", path)
	}
	return &FileJournal{f: f, log: log.Named("journal").Sugar()}, nil
}

func (j *FileJournal) Emit(ev events.Event) {
	line, err := events.Encode(ev)
	if err != nil {
		j.log.Errorw("encode_event_failed", "type", ev.Type().String(), "err", err)
		return
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if _, err := fmt.Fprintln(j.f, string(line)); err != nil {
		j.log.Errorw("journal_write_failed", "type", ev.Type().String(), "err", err)
	}
}

func (j *FileJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.f.Close()
}

var _ events.Sink = (*FileJournal)(nil)
