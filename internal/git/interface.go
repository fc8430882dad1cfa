// Package git reads repository state used to stamp build output.
package git

// Runner defines the git queries a build needs.
type Runner interface {
	// HeadCommit returns the full SHA of HEAD.
	HeadCommit() (string, error)
}
