package store

import (
	"context"
	"os"
	"path/filepath"
	"regexp"

	"github.com/cockroachdb/errors"
)

type fileStore struct {
	dir string
}

var _ Store = (*fileStore)(nil)

// NewFile returns a Store persisting each key as one file under dir.
// The directory is created if missing. Saves are atomic (temp file plus
// rename) so a crash mid-write never corrupts the previous blob.
func NewFile(dir string) (Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating store directory")
	}
	return &fileStore{dir: dir}, nil
}

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

func (c *fileStore) path(key string) string {
	return filepath.Join(c.dir, unsafeKeyChars.ReplaceAllString(key, "_")+".blob")
}

func (c *fileStore) Load(_ context.Context, key string) ([]byte, bool, error) {
	blob, err := os.ReadFile(c.path(key))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "reading %s", key)
	}
	return blob, true, nil
}

func (c *fileStore) Save(_ context.Context, key string, blob []byte) error {
	target := c.path(key)
	tmp, err := os.CreateTemp(c.dir, ".tmp-*")
	if err != nil {
		return errors.Wrap(err, "creating temp file")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrapf(err, "writing %s", key)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, "closing %s", key)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, "renaming %s", key)
	}
	return nil
}

func (c *fileStore) Delete(_ context.Context, key string) (bool, error) {
	err := os.Remove(c.path(key))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "removing %s", key)
	}
	return true, nil
}

func (c *fileStore) Close() error {
	return nil
}
