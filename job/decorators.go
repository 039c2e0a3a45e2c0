package job

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// chdirMu serializes every change_dir-decorated job across the process,
// since os.Chdir is global process state (spec §4.2: change_dir jobs never
// run concurrently with each other, even across backends, by construction).
var chdirMu sync.Mutex

// withChangeDir wraps fn so that, for the duration of the call, the
// process's working directory is dir. It restores the previous directory
// (even on panic-free error paths) before returning.
func withChangeDir(dir string, fn func() (any, error)) (any, error) {
	if dir == "" {
		return fn()
	}
	chdirMu.Lock()
	defer chdirMu.Unlock()

	prev, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("job: getwd before change_dir: %w", err)
	}
	if err := os.Chdir(dir); err != nil {
		return nil, fmt.Errorf("job: change_dir %q: %w", dir, err)
	}
	defer os.Chdir(prev)

	return fn()
}

// redirectedOutput is the pair of file handles a redirect_out_err job writes
// to, grounded one-to-one on spec §4.2's stdout.txt/stderr.txt per-job
// cache-directory layout.
type redirectedOutput struct {
	stdout *os.File
	stderr *os.File
}

// openRedirect creates <cacheDir>/<jobID>/stdout.txt and stderr.txt,
// truncating any previous run's output (a rerun starts each file fresh).
func openRedirect(cacheDir, jobID string) (*redirectedOutput, error) {
	dir := filepath.Join(cacheDir, jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("job: create cache dir for %s: %w", jobID, err)
	}
	out, err := os.Create(filepath.Join(dir, "stdout.txt"))
	if err != nil {
		return nil, fmt.Errorf("job: open stdout.txt for %s: %w", jobID, err)
	}
	errf, err := os.Create(filepath.Join(dir, "stderr.txt"))
	if err != nil {
		out.Close()
		return nil, fmt.Errorf("job: open stderr.txt for %s: %w", jobID, err)
	}
	return &redirectedOutput{stdout: out, stderr: errf}, nil
}

func (r *redirectedOutput) Close() {
	if r == nil {
		return
	}
	r.stdout.Close()
	r.stderr.Close()
}

// withRedirect calls fn with nil when j.RedirectOutErr is false; otherwise
// it opens the job's stdout/stderr files under cacheDir, passes them to fn
// and closes them after fn returns. ctx is unused. Nothing in this package
// calls withRedirect, so run() does not redirect a job's output.
func withRedirect(_ context.Context, cacheDir string, j *Job, fn func(r *redirectedOutput) (any, error)) (any, error) {
	if !j.RedirectOutErr {
		return fn(nil)
	}
	r, err := openRedirect(cacheDir, j.ID)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return fn(r)
}
