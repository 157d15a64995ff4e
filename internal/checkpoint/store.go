// Package checkpoint persists backtest replay progress per
// (symbol, strategy) pair.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/moznion/go-optional"

	"github.com/rxtech-lab/argo-runner/internal/types"
	"github.com/rxtech-lab/argo-runner/pkg/errors"
)

// Store reads and writes replay checkpoints. Load returns None for a pair
// that has never been checkpointed; a corrupt checkpoint is an error, not
// a silent restart from the beginning.
type Store interface {
	Load(pair types.PairKey) (optional.Option[types.Checkpoint], error)
	Save(cp types.Checkpoint) error
}

// FileStore keeps one JSON file per pair under a state directory. Writes
// go to a temp file first and are renamed into place so a crash can never
// leave a half-written checkpoint.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeCheckpointWriteFailed, err,
			"failed to create state dir %s", dir)
	}

	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(pair types.PairKey) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s.json", pair))
}

// Load reads the checkpoint for a pair. A missing file means the pair has
// never run. A file that exists but cannot be decoded halts the pair: the
// caller must not fall back to the start date and replay years of data.
func (s *FileStore) Load(pair types.PairKey) (optional.Option[types.Checkpoint], error) {
	data, err := os.ReadFile(s.path(pair))
	if err != nil {
		if os.IsNotExist(err) {
			return optional.None[types.Checkpoint](), nil
		}

		return optional.None[types.Checkpoint](), errors.Wrapf(errors.ErrCodeCheckpointCorrupt, err,
			"failed to read checkpoint for %s", pair)
	}

	var cp types.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return optional.None[types.Checkpoint](), errors.Wrapf(errors.ErrCodeCheckpointCorrupt, err,
			"checkpoint for %s is corrupt", pair)
	}

	if cp.Cursor.IsZero() {
		return optional.None[types.Checkpoint](), errors.Newf(errors.ErrCodeCheckpointCorrupt,
			"checkpoint for %s has no cursor", pair)
	}

	return optional.Some(cp), nil
}

// Save persists a checkpoint atomically. The cursor may only move forward;
// a regression means the caller's bookkeeping is broken.
func (s *FileStore) Save(cp types.Checkpoint) error {
	pair := cp.Pair()

	existing, err := s.Load(pair)
	if err != nil {
		return err
	}

	if existing.IsSome() && cp.Cursor.Before(existing.Unwrap().Cursor) {
		return errors.Newf(errors.ErrCodeCursorRegression,
			"cursor for %s moved backwards from %s to %s",
			pair, existing.Unwrap().Cursor.Format("2006-01-02"), cp.Cursor.Format("2006-01-02"))
	}

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return errors.Wrapf(errors.ErrCodeCheckpointWriteFailed, err,
			"failed to encode checkpoint for %s", pair)
	}

	tmp, err := os.CreateTemp(s.dir, fmt.Sprintf(".%s-*.tmp", pair))
	if err != nil {
		return errors.Wrapf(errors.ErrCodeCheckpointWriteFailed, err,
			"failed to create temp checkpoint for %s", pair)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())

		return errors.Wrapf(errors.ErrCodeCheckpointWriteFailed, err,
			"failed to write temp checkpoint for %s", pair)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())

		return errors.Wrapf(errors.ErrCodeCheckpointWriteFailed, err,
			"failed to close temp checkpoint for %s", pair)
	}

	if err := os.Rename(tmp.Name(), s.path(pair)); err != nil {
		os.Remove(tmp.Name())

		return errors.Wrapf(errors.ErrCodeCheckpointWriteFailed, err,
			"failed to replace checkpoint for %s", pair)
	}

	return nil
}
