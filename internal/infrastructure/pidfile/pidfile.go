// Package pidfile keeps a single `robofleet serve` per PID file.
package pidfile

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// ErrAlreadyRunning is returned by Acquire while the owning process lives
var ErrAlreadyRunning = errors.New("server is already running")

// PIDFile manages a process ID file for single-instance enforcement
type PIDFile struct {
	path string
	pid  int
}

func New(path string) *PIDFile {
	return &PIDFile{path: path, pid: os.Getpid()}
}

// Path is where the PID is written
func (p *PIDFile) Path() string {
	return p.path
}

// Acquire writes our PID. A file left behind by a dead or unparsable
// process is replaced.
func (p *PIDFile) Acquire() error {
	if owner, ok, err := p.Owner(); err != nil {
		return err
	} else if ok && owner != p.pid && isProcessRunning(owner) {
		return fmt.Errorf("%w (PID %d)", ErrAlreadyRunning, owner)
	}

	if err := os.WriteFile(p.path, []byte(strconv.Itoa(p.pid)+"\n"), 0644); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	return nil
}

// Owner reads the PID stored in the file; ok is false when there is none
func (p *PIDFile) Owner() (pid int, ok bool, err error) {
	data, err := os.ReadFile(p.path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read PID file: %w", err)
	}
	pid, convErr := strconv.Atoi(strings.TrimSpace(string(data)))
	if convErr != nil {
		return 0, false, nil
	}
	return pid, true, nil
}

// Release removes the file if we still own it
func (p *PIDFile) Release() error {
	owner, ok, err := p.Owner()
	if err != nil || !ok || owner != p.pid {
		return err
	}
	if err := os.Remove(p.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove PID file: %w", err)
	}
	return nil
}

func isProcessRunning(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// signal 0 only checks for existence; EPERM means it exists under
	// another user
	err = process.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}
