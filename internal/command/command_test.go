package command

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phospodka/reindexer/internal/failure"
)

func TestRunCapturesOutput(t *testing.T) {
	r := NewRunner(t.TempDir())

	res, err := r.Run(`sh -c "echo out; echo err >&2"`)
	require.NoError(t, err)
	assert.Equal(t, "out\n", res.Stdout)
	assert.Equal(t, "err\n", res.Stderr)
	assert.Equal(t, 0, res.ExitStatus)
	assert.True(t, res.OK())
}

func TestRunNonZeroExitIsNotAnError(t *testing.T) {
	r := NewRunner(t.TempDir())

	res, err := r.Run(`sh -c 'echo partial; exit 3'`)
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitStatus)
	assert.False(t, res.OK())
	assert.Equal(t, "partial\n", res.Output())
}

func TestRunQuotedSpanIsOneToken(t *testing.T) {
	r := NewRunner(t.TempDir())

	res, err := r.Run(`printf "%s|" "a b" c`)
	require.NoError(t, err)
	assert.Equal(t, "a b|c|", res.Stdout)
}

func TestRunStdinIsClosed(t *testing.T) {
	r := NewRunner(t.TempDir())

	// cat would block forever on an open terminal stdin.
	res, err := r.Run("cat")
	require.NoError(t, err)
	assert.Equal(t, "", res.Stdout)
}

func TestRunSpawnFailure(t *testing.T) {
	r := NewRunner(t.TempDir())

	_, err := r.Run("definitely-not-a-real-binary-xyz --flag")
	require.Error(t, err)
	assert.True(t, errors.Is(err, failure.ErrSystemInvocation))

	_, err = r.Run("   ")
	assert.True(t, errors.Is(err, failure.ErrSystemInvocation))

	_, err = r.Run(`echo "unterminated`)
	assert.True(t, errors.Is(err, failure.ErrSystemInvocation))
}

func TestRunTransferPassesScriptInline(t *testing.T) {
	dir := t.TempDir()
	tool := filepath.Join(dir, "fake-logstash")
	// Echo back the argument following -e.
	script := "#!/bin/sh\n[ \"$1\" = \"-e\" ] || exit 9\nprintf '%s' \"$2\"\n"
	require.NoError(t, os.WriteFile(tool, []byte(script), 0755))

	r := NewRunner(dir)
	cfg := "input { elasticsearch { hosts => \"es:9200\" index => \"logstash-2024.03.01\" } }"
	res, err := r.RunTransfer(tool, cfg)
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitStatus)
	assert.Equal(t, cfg, res.Stdout)
}

func TestRunTransferMissingExecutable(t *testing.T) {
	r := NewRunner(t.TempDir())

	_, err := r.RunTransfer("", "input {}")
	assert.True(t, errors.Is(err, failure.ErrSystemInvocation))

	_, err = r.RunTransfer(filepath.Join(t.TempDir(), "missing"), "input {}")
	assert.True(t, errors.Is(err, failure.ErrSystemInvocation))
}
