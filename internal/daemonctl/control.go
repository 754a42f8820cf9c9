package daemonctl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"subconform/internal/api"
)

// ErrDaemonNotRunning indicates no daemon answered on the API bind.
var ErrDaemonNotRunning = errors.New("daemon not running")

const pollInterval = 200 * time.Millisecond

// LaunchOptions controls daemon process launch behavior.
type LaunchOptions struct {
	ConfigPath string
	APIBind    string
	APIToken   string
}

type StartState string

const (
	StartStateStarted        StartState = "started"
	StartStateAlreadyRunning StartState = "already_running"
)

// StartResult captures daemon start orchestration state.
type StartResult struct {
	State  StartState
	PID    int
	Health *api.HealthResponse
}

// StopResult captures daemon stop/termination outcome.
type StopResult struct {
	PID        int
	ForcedKill bool
}

// Launch starts a detached "serve" process in its own session.
func Launch(executablePath string, opts LaunchOptions) error {
	if strings.TrimSpace(executablePath) == "" {
		return fmt.Errorf("resolve executable: executable path is empty")
	}
	args := []string{"serve"}
	if cfg := strings.TrimSpace(opts.ConfigPath); cfg != "" {
		args = append(args, "--config", cfg)
	}

	proc := exec.Command(executablePath, args...)
	proc.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	return proc.Process.Release()
}

// Probe asks the daemon for its health. It returns ErrDaemonNotRunning when
// nothing listens on the bind address.
func Probe(ctx context.Context, bind, token string) (*api.HealthResponse, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil, errors.New("api bind is not configured")
	}
	if !strings.Contains(bind, "://") {
		bind = "http://" + bind
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(bind, "/")+"/api/health", nil)
	if err != nil {
		return nil, err
	}
	if token = strings.TrimSpace(token); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		if isUnavailable(err) {
			return nil, ErrDaemonNotRunning
		}
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("health returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var health api.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil, fmt.Errorf("decode health: %w", err)
	}
	return &health, nil
}

// WaitReady polls the health endpoint until it answers or timeout elapses.
func WaitReady(ctx context.Context, bind, token string, timeout time.Duration) (*api.HealthResponse, error) {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		health, err := Probe(ctx, bind, token)
		if err == nil {
			return health, nil
		}
		lastErr = err
		if !sleep(ctx, pollInterval) {
			return nil, ctx.Err()
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("timeout waiting for daemon")
	}
	return nil, fmt.Errorf("daemon failed to start: %w", lastErr)
}

// EnsureStarted launches the daemon unless one already answers on the bind.
func EnsureStarted(ctx context.Context, executablePath string, opts LaunchOptions, waitTimeout time.Duration) (StartResult, error) {
	health, err := Probe(ctx, opts.APIBind, opts.APIToken)
	if err == nil {
		return StartResult{State: StartStateAlreadyRunning, PID: health.PID, Health: health}, nil
	}
	if !errors.Is(err, ErrDaemonNotRunning) {
		return StartResult{}, err
	}
	if err := Launch(executablePath, opts); err != nil {
		return StartResult{}, err
	}
	health, err = WaitReady(ctx, opts.APIBind, opts.APIToken, waitTimeout)
	if err != nil {
		return StartResult{}, err
	}
	return StartResult{State: StartStateStarted, PID: health.PID, Health: health}, nil
}

// WaitForShutdown waits for the health endpoint to stop answering.
func WaitForShutdown(ctx context.Context, bind, token string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if _, err := Probe(ctx, bind, token); errors.Is(err, ErrDaemonNotRunning) {
			return nil
		}
		if !sleep(ctx, pollInterval) {
			return ctx.Err()
		}
	}
	return fmt.Errorf("daemon did not stop within %s", timeout)
}

// StopAndTerminate sends SIGTERM to the daemon reported by the health
// endpoint and force-kills it if it is still answering after gracePeriod.
func StopAndTerminate(ctx context.Context, bind, token string, gracePeriod time.Duration) (StopResult, error) {
	health, err := Probe(ctx, bind, token)
	if err != nil {
		return StopResult{}, err
	}
	pid := health.PID
	if pid <= 0 {
		return StopResult{}, errors.New("daemon did not report its pid")
	}
	if pid == os.Getpid() {
		return StopResult{}, fmt.Errorf("refusing to signal current process (pid %d)", pid)
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return StopResult{}, fmt.Errorf("locate daemon process %d: %w", pid, err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return StopResult{}, fmt.Errorf("signal daemon process %d: %w", pid, err)
	}
	result := StopResult{PID: pid}
	if err := WaitForShutdown(ctx, bind, token, gracePeriod); err == nil {
		return result, nil
	}
	if err := proc.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return result, fmt.Errorf("kill daemon process %d: %w", pid, err)
	}
	result.ForcedKill = true
	return result, nil
}

func isUnavailable(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ENOENT) ||
		errors.Is(err, syscall.EHOSTUNREACH)
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
