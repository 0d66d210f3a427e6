//go:build !unix

package ffprobe

import "os/exec"

func configureProcess(cmd *exec.Cmd) {}
