package kvstore

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFile_WatchSeesRewrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	kv, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, kv.Set("k", "v0"))

	changed := make(chan struct{}, 8)
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	stop, err := kv.Watch(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}, quiet)
	require.NoError(t, err)
	defer stop()

	// A second handle on the same path stands in for an external writer.
	external, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, external.Set("k", "v1"))

	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a change event for an external rewrite")
	}
}
