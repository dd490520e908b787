package bridge

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"syscall"
)

// LaunchSpec describes how to start the agent worker process.
type LaunchSpec struct {
	// Runtime is the interpreter binary, e.g. "node" or "tsx".
	Runtime string
	// Entry is the script passed to the runtime.
	Entry string
	// Args are extra arguments appended after the entry script.
	Args []string
	// Dir is the working directory. Empty means inherit.
	Dir string
	// Env holds extra environment variables layered over the parent's.
	Env map[string]string
}

// process wraps a launched worker with its three pipes and an exit
// signal. done is closed once Wait has reaped the child.
type process struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	stderr io.ReadCloser

	done    chan struct{}
	waitErr error
}

// launch starts the worker with all three stdio streams piped. The
// child gets its own process group so a kill can take down any
// grandchildren it spawned.
func launch(spec LaunchSpec) (*process, error) {
	if spec.Runtime == "" {
		return nil, fmt.Errorf("launch agent: empty runtime")
	}
	args := append([]string{spec.Entry}, spec.Args...)
	cmd := exec.Command(spec.Runtime, args...)
	cmd.Dir = spec.Dir
	cmd.Env = mergedEnv(spec.Env)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("launch agent: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("launch agent: stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("launch agent: stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("launch agent: %w", err)
	}

	p := &process{
		cmd:    cmd,
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		done:   make(chan struct{}),
	}
	go func() {
		p.waitErr = cmd.Wait()
		close(p.done)
	}()
	return p, nil
}

// exited reports whether the child has been reaped, without blocking.
func (p *process) exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// kill signals the child's process group and waits for the reaper.
// Safe to call on an already-dead process.
func (p *process) kill() {
	if p.exited() {
		return
	}
	if pgid, err := syscall.Getpgid(p.cmd.Process.Pid); err == nil {
		_ = syscall.Kill(-pgid, syscall.SIGKILL)
	} else {
		_ = p.cmd.Process.Kill()
	}
	<-p.done
}

func (p *process) pid() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

func mergedEnv(extra map[string]string) []string {
	env := os.Environ()
	if len(extra) == 0 {
		return env
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+extra[k])
	}
	return env
}
