package git

import (
	"errors"
	"os/exec"
	"testing"
	"time"
)

type stubRunner struct {
	sha string
	err error
}

func (s stubRunner) HeadCommit() (string, error) { return s.sha, s.err }

func TestShortSHA(t *testing.T) {
	tests := map[string]string{
		"0123456789abcdef0123456789abcdef01234567": "0123...4567",
		"abcdef12": "abcdef12",
		"":         "",
	}
	for in, want := range tests {
		if got := ShortSHA(in); got != want {
			t.Errorf("ShortSHA(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestVersion(t *testing.T) {
	fixed := func() time.Time { return time.Unix(1700000000, 0) }

	tests := []struct {
		name   string
		runner Runner
		want   string
	}{
		{name: "commit", runner: stubRunner{sha: "0123456789abcdef0123456789abcdef01234567"}, want: "0123...4567"},
		{name: "not a repo", runner: stubRunner{err: errors.New("fatal: not a git repository")}, want: "1700000000"},
		{name: "no runner", runner: nil, want: "1700000000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Version(tt.runner, fixed); got != tt.want {
				t.Errorf("Version() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExecRunner_NotARepo(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	r := NewRunner(t.TempDir())
	if _, err := r.HeadCommit(); err == nil {
		t.Error("HeadCommit() outside a repository should fail")
	}
}
