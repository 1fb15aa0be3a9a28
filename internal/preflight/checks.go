package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/mranv/agentARChecker/internal/channel"
	"github.com/mranv/agentARChecker/internal/config"
	"github.com/mranv/agentARChecker/internal/frame"
)

// CheckSocket verifies that path exists, is a Unix socket, and that the
// current user may read and write it.
func CheckSocket(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if info.Mode()&os.ModeSocket == 0 {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not a socket, mode %s)", path, info.Mode())}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckDirectoryAccess verifies that path is a directory the current user can
// list and write.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckStateDir is CheckDirectoryAccess, except that a missing directory
// passes because archeck creates it on first use.
func CheckStateDir(name, path string) Result {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (created on first run)", path)}
	}
	return CheckDirectoryAccess(name, path)
}

// CheckDaemonAccepts opens and immediately closes one connection to the
// remote daemon. No request is sent.
func CheckDaemonAccepts(ctx context.Context, name string, cfg *config.Config) Result {
	ch, err := channel.Dial(ctx, cfg.Remote.SocketPath, channel.Options{
		ConnectTimeout: cfg.ConnectTimeout(),
		Limits:         frame.Limits{MaxPayloadBytes: cfg.Remote.MaxFrameBytes},
	})
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("connect failed (%v)", err)}
	}
	ch.Close()
	return Result{Name: name, Passed: true, Detail: "accepting connections"}
}
