package kvstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

// File is a KV backed by a single JSON document on disk. Keys become
// top-level members of the document; writes are atomic (temp file + rename)
// so a crash never leaves a torn document behind.
type File struct {
	mu   sync.Mutex
	path string
}

// Open creates a file-backed KV at path. The file is created lazily on the
// first Set; a missing file reads as empty.
func Open(path string) (*File, error) {
	if path == "" {
		return nil, errors.New("kvstore: path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("kvstore: creating directory: %w", err)
	}
	return &File{path: path}, nil
}

// Path returns the backing file path.
func (f *File) Path() string {
	return f.path
}

// Get implements KV.
func (f *File) Get(key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return "", false, err
	}
	res := gjson.GetBytes(doc, escapeKey(key))
	if !res.Exists() {
		return "", false, nil
	}
	return res.String(), true, nil
}

// Set implements KV.
func (f *File) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return err
	}
	doc, err = sjson.SetBytes(doc, escapeKey(key), value)
	if err != nil {
		return fmt.Errorf("kvstore: setting %q: %w", key, err)
	}
	return f.write(pretty.Pretty(doc))
}

func (f *File) read() ([]byte, error) {
	doc, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return []byte("{}"), nil
	}
	if err != nil {
		return nil, fmt.Errorf("kvstore: reading %s: %w", f.path, err)
	}
	if len(doc) == 0 {
		return []byte("{}"), nil
	}
	return doc, nil
}

// write replaces the document atomically.
func (f *File) write(doc []byte) error {
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, doc, 0o644); err != nil {
		return fmt.Errorf("kvstore: writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("kvstore: replacing %s: %w", f.path, err)
	}
	return nil
}

// escapeKey makes an arbitrary key safe to use as a single gjson/sjson path
// segment: dots in keys are literal characters, not path separators.
func escapeKey(key string) string {
	key = strings.ReplaceAll(key, `\`, `\\`)
	key = strings.ReplaceAll(key, ".", `\.`)
	key = strings.ReplaceAll(key, "*", `\*`)
	key = strings.ReplaceAll(key, "?", `\?`)
	return key
}
