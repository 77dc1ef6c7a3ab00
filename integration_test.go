//go:build integration
// +build integration

package main

import (
	"bufio"
	"encoding/json"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"
)

func buildBinary(t testing.TB) string {
	t.Helper()
	bin := filepath.Join(t.TempDir(), "mpvremote_test")
	buildCmd := exec.Command("go", "build", "-o", bin, ".")
	if out, err := buildCmd.CombinedOutput(); err != nil {
		t.Fatalf("Failed to build binary: %v\n%s", err, out)
	}
	return bin
}

func testEnv(dir string) []string {
	return append(os.Environ(),
		"MPVREMOTE_SOCKET_PATH="+filepath.Join(dir, "mpv.sock"),
		"MPVREMOTE_HISTORY_DB="+filepath.Join(dir, "history.db"),
		"MPVREMOTE_STATE_FILE="+filepath.Join(dir, "state.json"),
		"MPVREMOTE_CONNECT_RETRIES=1",
	)
}

// TestDaemonLifecycle starts the daemon without mpv running and stops it
func TestDaemonLifecycle(t *testing.T) {
	bin := buildBinary(t)
	tmpDir := t.TempDir()

	cmd := exec.Command(bin, "daemon", "--log-level", "debug")
	cmd.Env = testEnv(tmpDir)

	if err := cmd.Start(); err != nil {
		t.Fatalf("Failed to start daemon: %v", err)
	}

	time.Sleep(1 * time.Second)

	// The daemon waits for the socket but opens history right away
	historyDB := filepath.Join(tmpDir, "history.db")
	if _, err := os.Stat(historyDB); os.IsNotExist(err) {
		t.Errorf("History database not created: %s", historyDB)
	}

	if err := cmd.Process.Signal(syscall.SIGINT); err != nil {
		t.Fatalf("Failed to signal daemon: %v", err)
	}

	done := make(chan error)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Daemon exited with error: %v", err)
		}
	case <-time.After(5 * time.Second):
		_ = cmd.Process.Kill()
		t.Error("Daemon did not stop within 5 seconds")
	}
}

// TestNowCommand runs "now" without mpv running
func TestNowCommand(t *testing.T) {
	bin := buildBinary(t)

	cmd := exec.Command(bin, "now")
	cmd.Env = testEnv(t.TempDir())
	output, err := cmd.Output()
	if err == nil {
		t.Fatal("expected now to fail without an mpv socket")
	}
	if len(output) != 0 {
		t.Errorf("expected no output without mpv, got %q", output)
	}
}

// TestControlCommand sends a command to a fake mpv
func TestControlCommand(t *testing.T) {
	bin := buildBinary(t)
	tmpDir := t.TempDir()

	ln, err := net.Listen("unix", filepath.Join(tmpDir, "mpv.sock"))
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	received := make(chan []any, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			var req struct {
				Command   []any `json:"command"`
				RequestID int64 `json:"request_id"`
			}
			if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
				continue
			}
			select {
			case received <- req.Command:
			default:
			}
			resp, _ := json.Marshal(map[string]any{
				"request_id": req.RequestID,
				"error":      "success",
			})
			_, _ = conn.Write(append(resp, '\n'))
		}
	}()

	cmd := exec.Command(bin, "pause")
	cmd.Env = testEnv(tmpDir)
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("pause failed: %v\n%s", err, output)
	}

	select {
	case got := <-received:
		joined := formatCommand(got)
		if joined != "set_property pause true" {
			t.Errorf("command = %q, want %q", joined, "set_property pause true")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("fake mpv received no command")
	}
}

func formatCommand(parts []any) string {
	out := make([]string, len(parts))
	for i, p := range parts {
		b, _ := json.Marshal(p)
		out[i] = strings.Trim(string(b), `"`)
	}
	return strings.Join(out, " ")
}

// TestSystemdInstallation installs and uninstalls the user service
func TestSystemdInstallation(t *testing.T) {
	t.Skip("Modifies the user's systemd configuration - run manually")

	// Manual test steps:
	// 1. Build the binary: go build -o mpvremote .
	// 2. Run: ./mpvremote install
	// 3. Verify unit exists: ls ~/.config/systemd/user/mpvremote.service
	// 4. Verify daemon is running: systemctl --user status mpvremote.service
	// 5. Run: ./mpvremote uninstall
	// 6. Verify unit removed: ls ~/.config/systemd/user/mpvremote.service
}

// BenchmarkNowCommand benchmarks the performance of the "now" command
func BenchmarkNowCommand(b *testing.B) {
	bin := buildBinary(b)
	env := testEnv(b.TempDir())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cmd := exec.Command(bin, "now")
		cmd.Env = env
		_ = cmd.Run()
	}
}
