package nextflow

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"

	log "github.com/sirupsen/logrus"
)

// ProcessRunner runs a command to completion.
// A non-zero exit is reported through the exit code with a nil error;
// the error is for failures to start or wait on the process.
type ProcessRunner interface {
	Run(ctx context.Context, cmd *Command) (int, error)
}

// ExecRunner runs commands as child processes with output streamed to Stdout and Stderr
type ExecRunner struct {
	Stdout io.Writer
	Stderr io.Writer
}

func NewExecRunner() *ExecRunner {
	return &ExecRunner{Stdout: os.Stdout, Stderr: os.Stderr}
}

func (r *ExecRunner) Run(ctx context.Context, cmd *Command) (int, error) {
	if len(cmd.Args) == 0 {
		return -1, errors.New("empty command")
	}
	c := exec.CommandContext(ctx, cmd.Args[0], cmd.Args[1:]...)
	c.Dir = cmd.Dir
	c.Env = cmd.Env
	c.Stdout = r.Stdout
	c.Stderr = r.Stderr

	if err := c.Start(); err != nil {
		return -1, err
	}
	log.WithField("pid", c.Process.Pid).Debug("nextflow started")

	err := c.Wait()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ctx.Err() != nil {
			return exitErr.ExitCode(), ctx.Err()
		}
		return exitErr.ExitCode(), nil
	}
	return -1, err
}
