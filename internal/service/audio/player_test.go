package audio

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func skipWithoutShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
}

func TestPlayer_RunsCommandWithPath(t *testing.T) {
	skipWithoutShell(t)
	dir := t.TempDir()
	sound := writeFile(t, dir, "alert.wav", "RIFF", 0644)
	marker := filepath.Join(dir, "played")
	script := writeFile(t, dir, "player.sh", "#!/bin/sh\necho \"$1\" > "+marker+"\n", 0755)

	if err := NewPlayer(sound, script).Play(context.Background()); err != nil {
		t.Fatalf("Play: %v", err)
	}

	got, err := os.ReadFile(marker)
	if err != nil {
		t.Fatalf("player was not executed: %v", err)
	}
	if string(got) != sound+"\n" {
		t.Errorf("player received %q, want %q", got, sound)
	}
}

func TestPlayer_MissingSound(t *testing.T) {
	err := NewPlayer(filepath.Join(t.TempDir(), "missing.wav"), "true").Play(context.Background())
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Play error = %v, want not-exist", err)
	}
}

func TestPlayer_CommandFailure(t *testing.T) {
	skipWithoutShell(t)
	dir := t.TempDir()
	sound := writeFile(t, dir, "alert.wav", "RIFF", 0644)
	script := writeFile(t, dir, "player.sh", "#!/bin/sh\necho 'device busy' >&2\nexit 3\n", 0755)

	err := NewPlayer(sound, script).Play(context.Background())
	if err == nil {
		t.Fatal("expected error from failing player")
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Errorf("error %v does not wrap the exit status", err)
	}
}

func TestPlayer_ContextCancelStopsPlayback(t *testing.T) {
	skipWithoutShell(t)
	dir := t.TempDir()
	sound := writeFile(t, dir, "alert.wav", "RIFF", 0644)
	script := writeFile(t, dir, "player.sh", "#!/bin/sh\nexec sleep 10\n", 0755)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	if err := NewPlayer(sound, script).Play(ctx); err == nil {
		t.Fatal("expected error after cancellation")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Play returned after %v, cancellation ignored", elapsed)
	}
}

func TestDefaultCommand(t *testing.T) {
	tests := []struct {
		goos string
		want string
	}{
		{"linux", "aplay"},
		{"darwin", "afplay"},
		{"windows", "powershell"},
		{"plan9", ""},
	}
	for _, tt := range tests {
		args := defaultCommand(tt.goos)
		got := ""
		if len(args) > 0 {
			got = args[0]
		}
		if got != tt.want {
			t.Errorf("defaultCommand(%q) = %v, want %q", tt.goos, args, tt.want)
		}
	}
}

func TestPlayer_NoPlayer(t *testing.T) {
	p := &Player{path: "alert.wav"}
	if err := p.Play(context.Background()); !errors.Is(err, ErrNoPlayer) {
		t.Errorf("Play error = %v, want ErrNoPlayer", err)
	}
}
