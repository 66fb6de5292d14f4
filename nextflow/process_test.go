package nextflow

import (
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shell(t *testing.T) string {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("no shell available")
	}
	return sh
}

func TestExecRunner(t *testing.T) {
	sh := shell(t)
	dir := t.TempDir()
	out := &bytes.Buffer{}
	r := &ExecRunner{Stdout: out, Stderr: out}

	code, err := r.Run(context.Background(), &Command{
		Args: []string{sh, "-c", `echo "$K8S_STORAGE_CLAIM_NAME $(pwd)"; exit 3`},
		Dir:  dir,
		Env:  []string{"K8S_STORAGE_CLAIM_NAME=pvc-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, code)
	resolved, _ := filepath.EvalSymlinks(dir)
	assert.Contains(t, out.String(), "pvc-1 ")
	assert.Contains(t, out.String(), filepath.Base(resolved))

	code, err = r.Run(context.Background(), &Command{Args: []string{sh, "-c", "true"}, Dir: dir})
	require.NoError(t, err)
	assert.Equal(t, 0, code)
}

func TestExecRunnerStartFailure(t *testing.T) {
	r := &ExecRunner{}
	code, err := r.Run(context.Background(), &Command{Args: []string{filepath.Join(t.TempDir(), "nextflow")}})
	assert.Error(t, err)
	assert.Equal(t, -1, code)

	_, err = r.Run(context.Background(), &Command{})
	assert.Error(t, err)
}

func TestExecRunnerCancel(t *testing.T) {
	sh := shell(t)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := (&ExecRunner{}).Run(ctx, &Command{Args: []string{sh, "-c", "sleep 10"}})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
