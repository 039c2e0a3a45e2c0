package backend

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"oss.nandlabs.io/jobengine/vfs"
)

// SubprocessSpec describes the extension facet from spec §4.4: a job whose
// body is a shell command rather than Go code. It is specified only by
// interface in the source, so the concrete shape here — a command string
// run through "sh -c" — is this implementation's own minimal, idiomatic
// realization of "builds a shell command".
type SubprocessSpec struct {
	// Command is the shell command line to execute.
	Command string
	// Dir optionally chdirs the child process into this directory before
	// running (spec: "optionally chdirs into a resolved target directory").
	Dir string
	// Env, if non-empty, is appended to the child's inherited environment.
	Env []string
	// Record writes command.sh into the job's cache directory before
	// running, for after-the-fact inspection (spec: "writes command.sh
	// into cache if recording is requested").
	Record bool
}

// NewSubprocessCallable builds a job.Callable that runs spec as a child
// process, streaming its stdout/stderr into "<cacheDir>/<jobID>/stdout.txt"
// and "stderr.txt" (spec's per-job cache layout, §6), and failing the job
// on a non-zero exit. jobID and cacheDir are bound at construction time
// since job.Callable's signature carries no job identity of its own.
func NewSubprocessCallable(jobID, cacheDir string, spec SubprocessSpec) func(ctx context.Context, args []any) (any, error) {
	return func(ctx context.Context, _ []any) (any, error) {
		dir := filepath.Join(cacheDir, jobID)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("backend: create cache dir for subprocess job %s: %w", jobID, err)
		}

		if spec.Record {
			if err := writeCommandScript(dir, spec.Command); err != nil {
				return nil, err
			}
		}

		stdout, err := os.Create(filepath.Join(dir, "stdout.txt"))
		if err != nil {
			return nil, fmt.Errorf("backend: open stdout.txt for %s: %w", jobID, err)
		}
		defer stdout.Close()
		stderr, err := os.Create(filepath.Join(dir, "stderr.txt"))
		if err != nil {
			return nil, fmt.Errorf("backend: open stderr.txt for %s: %w", jobID, err)
		}
		defer stderr.Close()

		cmd := exec.CommandContext(ctx, "sh", "-c", spec.Command)
		if spec.Dir != "" {
			cmd.Dir = spec.Dir
		}
		if len(spec.Env) > 0 {
			cmd.Env = append(os.Environ(), spec.Env...)
		}
		cmd.Stdout = stdout
		cmd.Stderr = stderr

		if err := cmd.Run(); err != nil {
			return nil, fmt.Errorf("backend: subprocess job %s exited with error: %w", jobID, err)
		}
		return dir, nil
	}
}

// writeCommandScript records the resolved command line into
// "<dir>/command.sh" via this module's vfs manager, the same
// filesystem-abstraction layer the teacher uses for every other
// path-addressed write.
func writeCommandScript(dir, command string) error {
	path := filepath.Join(dir, "command.sh")
	f, err := vfs.GetManager().CreateRaw(path)
	if err != nil {
		return fmt.Errorf("backend: create command.sh at %s: %w", path, err)
	}
	defer f.Close()
	if _, err := f.Write([]byte("#!/bin/sh\n" + command + "\n")); err != nil {
		return fmt.Errorf("backend: write command.sh at %s: %w", path, err)
	}
	return nil
}
