// Package command runs resolved templates as external processes.
package command

import (
	"bytes"
	"errors"
	"os/exec"
	"strings"

	"github.com/google/shlex"

	"github.com/phospodka/reindexer/internal/failure"
)

// Result holds the captured output of one process.
type Result struct {
	Stdout     string
	Stderr     string
	ExitStatus int
}

// OK reports whether the process exited with status zero.
func (r *Result) OK() bool {
	return r.ExitStatus == 0
}

// Output returns stdout followed by stderr, for error logs.
func (r *Result) Output() string {
	return r.Stdout + r.Stderr
}

// Runner spawns external commands. The zero value runs in the current
// working directory with the inherited environment.
type Runner struct {
	// Dir is the working directory for spawned processes.
	Dir string
	// Env, when non-nil, replaces the inherited environment.
	Env []string
}

// NewRunner creates a Runner that executes in dir.
func NewRunner(dir string) *Runner {
	return &Runner{Dir: dir}
}

// Run splits commandLine with shell-word rules and executes it. A Result is
// returned for every process that was spawned, whatever its exit status.
func (r *Runner) Run(commandLine string) (*Result, error) {
	args, err := shlex.Split(commandLine)
	if err != nil {
		return nil, failure.New(failure.SystemInvocation, "splitting command line: %v", err)
	}
	if len(args) == 0 {
		return nil, failure.New(failure.SystemInvocation, "empty command line")
	}
	return r.exec(args[0], args[1:]...)
}

// RunTransfer invokes the transfer tool with script passed inline as the
// argument of -e, so the script text is never word-split.
func (r *Runner) RunTransfer(executable, script string) (*Result, error) {
	if strings.TrimSpace(executable) == "" {
		return nil, failure.New(failure.SystemInvocation, "transfer executable is not set")
	}
	return r.exec(executable, "-e", script)
}

func (r *Runner) exec(name string, args ...string) (*Result, error) {
	cmd := exec.Command(name, args...)
	cmd.Dir = r.Dir
	if r.Env != nil {
		cmd.Env = r.Env
	}

	// The child sees an empty, closed stdin.
	cmd.Stdin = strings.NewReader("")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, failure.New(failure.SystemInvocation, "starting %s: %v", name, err)
	}

	exitStatus := 0
	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, failure.New(failure.SystemInvocation, "waiting for %s: %v", name, err)
		}
		exitStatus = exitErr.ExitCode()
	}

	return &Result{
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
		ExitStatus: exitStatus,
	}, nil
}
