package testutil

import (
	"os"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/require"
)

// Repo drives a real git repository in a test directory.
type Repo struct {
	Dir string
}

// GitRepo initializes a git repository in dir. Skips the test when git
// is not installed.
func GitRepo(t *testing.T, dir string) *Repo {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	r := &Repo{Dir: dir}
	r.run(t, "init", "--quiet")
	return r
}

// Commit records an empty commit with the given subject.
func (r *Repo) Commit(t *testing.T, subject string) {
	t.Helper()
	r.run(t, "commit", "--allow-empty", "--quiet", "-m", subject)
}

func (r *Repo) run(t *testing.T, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = r.Dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com",
	)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, out)
}
