//go:build !unix

package sandbox

import "os/exec"

// configureProcessGroup keeps the exec default of killing only the direct child.
func configureProcessGroup(_ *exec.Cmd) {}
