package bgproc

import (
	"context"
	"os"
	"os/exec"
	"syscall"

	"github.com/pkg/errors"
)

// execControl spawns real processes.
type execControl struct{}

func (execControl) SpawnDetached(bin string, args, env []string, logPath string) (int, error) {
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return 0, errors.Wrap(err, "failed to open log file")
	}
	defer logFile.Close()

	cmd := exec.Command(bin, args...)
	cmd.Env = env
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	// A new session detaches the node from the controlling terminal so
	// it survives the frm invocation and shell exits.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return 0, err
	}
	pid := cmd.Process.Pid
	if err := cmd.Process.Release(); err != nil {
		return pid, errors.Wrap(err, "failed to release process handle")
	}
	return pid, nil
}

func (execControl) RequestShutdown(ctx context.Context, ctlPath string, env []string) error {
	cmd := exec.CommandContext(ctx, ctlPath, "shutdown", "--no-wait")
	cmd.Env = env
	out, err := cmd.CombinedOutput()
	if err != nil {
		return errors.Wrapf(err, "rabbitmqctl shutdown failed: %s", out)
	}
	return nil
}
