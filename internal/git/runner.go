package git

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// ExecRunner implements Runner using exec.Command.
type ExecRunner struct {
	repoPath string
}

// NewRunner creates a new git runner for the repository at the given path.
func NewRunner(repoPath string) *ExecRunner {
	return &ExecRunner{repoPath: repoPath}
}

// run executes a git command and returns its output.
func (r *ExecRunner) run(args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = r.repoPath
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, string(out))
	}
	return strings.TrimSpace(string(out)), nil
}

// HeadCommit returns the full SHA of HEAD.
func (r *ExecRunner) HeadCommit() (string, error) {
	return r.run("rev-parse", "HEAD")
}

// Verify ExecRunner implements Runner at compile time.
var _ Runner = (*ExecRunner)(nil)

// ShortSHA abbreviates a commit as its first and last four characters,
// e.g. "1a2b...9f8e".
func ShortSHA(sha string) string {
	if len(sha) <= 8 {
		return sha
	}
	return sha[:4] + "..." + sha[len(sha)-4:]
}

// Version returns the build version stamp for slide control files: the
// abbreviated HEAD commit, or the current Unix time when the project is not
// a git repository.
func Version(r Runner, now func() time.Time) string {
	if r != nil {
		if sha, err := r.HeadCommit(); err == nil && sha != "" {
			return ShortSHA(sha)
		}
	}
	if now == nil {
		now = time.Now
	}
	return strconv.FormatInt(now().Unix(), 10)
}
