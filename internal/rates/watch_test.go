package rates

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchRetailersFile_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "retailers.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- key: origin\n  name: Origin\n  source: origin.csv\n"), 0o644))

	list, err := LoadRetailersFile(path)
	require.NoError(t, err)
	reg := NewRegistry(list)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- WatchRetailersFile(ctx, path, reg) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	// Give the watcher a moment to register the directory.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(
		"- key: origin\n  name: Origin\n  source: origin.csv\n"+
			"- key: amber\n  name: Amber\n  source: https://rates.example.com/amber.json\n"), 0o644))

	require.Eventually(t, func() bool { return len(reg.List()) == 2 }, 5*time.Second, 50*time.Millisecond)
	d, err := reg.Get("amber")
	require.NoError(t, err)
	assert.Equal(t, "https://rates.example.com/amber.json", d.Source)
}

func TestWatchRetailersFile_KeepsRegistryOnBadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "retailers.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- key: origin\n  source: origin.csv\n"), 0o644))
	reg := NewRegistry([]RetailerDescriptor{{Key: "origin", Source: filepath.Join(dir, "origin.csv")}})

	reload(path, reg)
	require.Len(t, reg.List(), 1)

	require.NoError(t, os.WriteFile(path, []byte("[]\n"), 0o644))
	reload(path, reg)
	assert.Len(t, reg.List(), 1)
	assert.Equal(t, "origin", reg.List()[0].Key)
}

func TestWatchRetailersFile_StopsOnCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "retailers.yaml")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- WatchRetailersFile(ctx, path, NewRegistry(nil)) }()
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
