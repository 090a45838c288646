// Package lockfile keeps two CommentPipe runs from sharing one Instagram account.
//
// Each account gets its own lock file in the state directory, held with flock so
// the lock is released by the kernel when the process exits, gracefully or not.
// Two runs on the same account would overwrite each other's session file and
// double-reply to comments.
package lockfile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

const (
	lockFilePrefix = "commentpipe"
	lockFileSuffix = ".lock"
)

// FileName returns the lock file name for account. An empty account locks the
// whole state directory.
func FileName(account string) string {
	if account == "" {
		return lockFilePrefix + lockFileSuffix
	}
	return lockFilePrefix + "_" + account + lockFileSuffix
}

// Lock represents an active account lock.
type Lock struct {
	file     *os.File
	path     string
	account  string
	acquired bool
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// AcquireLock takes the lock for account inside stateDir, creating the directory
// if needed. If another process holds it, a *LockError describing that process is
// returned.
func AcquireLock(stateDir, account string) (*Lock, error) {
	lockPath := filepath.Join(stateDir, FileName(account))

	slog.Debug("Attempting to acquire account lock", "lock_path", lockPath, "account", account)

	if err := os.MkdirAll(stateDir, 0700); err != nil {
		slog.Error("Failed to create state directory for lock", "error", err, "state_dir", stateDir)
		return nil, fmt.Errorf("failed to create state directory %s: %w", stateDir, err)
	}

	// Not truncated until the lock is ours, so a holder's details stay readable.
	file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		slog.Error("Failed to open lock file", "error", err, "lock_path", lockPath)
		return nil, fmt.Errorf("failed to open lock file %s: %w", lockPath, err)
	}

	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		file.Close()
		holder := readExistingLockInfo(lockPath)

		slog.Error("Failed to acquire account lock, another CommentPipe run holds it",
			"error", err, "lock_path", lockPath, "account", account, "existing_lock_info", holder)

		return nil, &LockError{
			LockPath:     lockPath,
			Account:      account,
			ExistingInfo: holder,
			Cause:        err,
		}
	}

	info := fmt.Sprintf("pid=%d\naccount=%s\n", os.Getpid(), account)
	if err := writeLockInfo(file, info); err != nil {
		syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
		file.Close()

		slog.Error("Failed to write lock information", "error", err, "lock_path", lockPath)
		return nil, fmt.Errorf("failed to write lock information to %s: %w", lockPath, err)
	}

	if err := file.Sync(); err != nil {
		slog.Warn("Failed to sync lock file", "error", err, "lock_path", lockPath)
	}

	slog.Info("Acquired account lock", "lock_path", lockPath, "account", account, "pid", os.Getpid())
	return &Lock{file: file, path: lockPath, account: account, acquired: true}, nil
}

func writeLockInfo(file *os.File, info string) error {
	if err := file.Truncate(0); err != nil {
		return err
	}
	_, err := file.WriteAt([]byte(info), 0)
	return err
}

// Release releases the lock and removes the lock file.
// This method is safe to call multiple times.
func (l *Lock) Release() error {
	if !l.acquired || l.file == nil {
		slog.Debug("Lock already released or not acquired", "lock_path", l.path)
		return nil
	}

	slog.Debug("Releasing account lock", "lock_path", l.path, "pid", os.Getpid())

	if err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN); err != nil {
		slog.Error("Failed to release flock", "error", err, "lock_path", l.path)
	}
	if err := l.file.Close(); err != nil {
		slog.Error("Failed to close lock file", "error", err, "lock_path", l.path)
	}
	if err := os.Remove(l.path); err != nil {
		slog.Error("Failed to remove lock file", "error", err, "lock_path", l.path)
	}

	l.acquired = false
	l.file = nil

	slog.Info("Released account lock", "lock_path", l.path, "account", l.account)
	return nil
}

// LockError is returned when another process holds the account lock.
type LockError struct {
	LockPath     string
	Account      string
	ExistingInfo string
	Cause        error
}

func (e *LockError) Error() string {
	who := "the same state directory"
	if e.Account != "" {
		who = fmt.Sprintf("account %q", e.Account)
	}
	msg := fmt.Sprintf("Another CommentPipe instance is already running for %s.\n\nLock file: %s", who, e.LockPath)

	if e.ExistingInfo != "" {
		msg += fmt.Sprintf("\nExisting process: %s", e.ExistingInfo)
	}

	msg += "\n\nIf you're certain no other CommentPipe instance is running, the lock file may be stale.\n" +
		"You can manually remove it with:\n" +
		fmt.Sprintf("  rm %s", e.LockPath) +
		"\n\nWARNING: Two runs on one account overwrite each other's session file and reply to the same comments twice."

	return msg
}

func (e *LockError) Unwrap() error {
	return e.Cause
}

// readExistingLockInfo describes the lock holder for error messages.
func readExistingLockInfo(lockPath string) string {
	data, err := os.ReadFile(lockPath)
	if err != nil {
		return "unable to read lock file information"
	}

	content := strings.TrimSpace(string(data))
	if content == "" {
		return "lock file exists but contains no process information"
	}

	if pid := extractPIDFromLockInfo(content); pid > 0 {
		if isProcessRunning(pid) {
			return fmt.Sprintf("PID %d (running)", pid)
		}
		return fmt.Sprintf("PID %d (not running - stale lock)", pid)
	}

	return fmt.Sprintf("process information: %s", content)
}

// extractPIDFromLockInfo parses the "pid=NNNN" line.
func extractPIDFromLockInfo(content string) int {
	const pidPrefix = "pid="
	if idx := strings.Index(content, pidPrefix); idx != -1 {
		start := idx + len(pidPrefix)
		end := start
		for end < len(content) && content[end] >= '0' && content[end] <= '9' {
			end++
		}
		if end > start {
			if pid, err := strconv.Atoi(content[start:end]); err == nil {
				return pid
			}
		}
	}
	return 0
}

// isProcessRunning sends signal 0, which checks for existence without delivering anything.
func isProcessRunning(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
