package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncBuffer is a bytes.Buffer safe for the watch loop and the test to share.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

const watchedForm = `title: Feedback
steps:
  - label: About you
    fields:
      - id: name
        required: true
  - label: Done
`

func TestWatchCheck_RechecksOnSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedback.yml")
	require.NoError(t, os.WriteFile(path, []byte(watchedForm), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var stdout, stderr syncBuffer
	cmd := &cobra.Command{}
	cmd.SetContext(ctx)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	done := make(chan error, 1)
	go func() { done <- watchCheck(cmd, []string{path}) }()

	require.Eventually(t, func() bool {
		return strings.Contains(stderr.String(), "Watching 1 definition(s)")
	}, 3*time.Second, 20*time.Millisecond)
	assert.Equal(t, 1, strings.Count(stdout.String(), "✓ "+path))

	broken := strings.Replace(watchedForm, "required: true", "required: true\n        bogus: 1", 1)
	require.NoError(t, os.WriteFile(path, []byte(broken), 0644))
	require.Eventually(t, func() bool {
		return strings.Contains(stderr.String(), "✗ "+path)
	}, 3*time.Second, 20*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte(watchedForm), 0644))
	require.Eventually(t, func() bool {
		return strings.Count(stdout.String(), "✓ "+path) == 2
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("watch loop did not stop")
	}
}
