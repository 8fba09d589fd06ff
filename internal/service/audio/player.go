// Package audio plays the alert WAV through the platform's command line player.
package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// ErrNoPlayer is returned when no player command is known for this platform.
var ErrNoPlayer = errors.New("no audio player available")

// Player plays one sound file per Play call.
type Player struct {
	path    string
	command []string
}

// NewPlayer creates a player for the sound at path. An empty command selects
// the platform default ("aplay -q" on Linux, "afplay" on macOS).
func NewPlayer(path, command string) *Player {
	args := strings.Fields(command)
	if len(args) == 0 {
		args = defaultCommand(runtime.GOOS)
	}
	return &Player{path: path, command: args}
}

func defaultCommand(goos string) []string {
	switch goos {
	case "linux":
		return []string{"aplay", "-q"}
	case "darwin":
		return []string{"afplay"}
	case "windows":
		return []string{"powershell", "-NoProfile", "-Command"}
	default:
		return nil
	}
}

// Play blocks until the sound has been played once or ctx is cancelled.
func (p *Player) Play(ctx context.Context) error {
	if len(p.command) == 0 {
		return ErrNoPlayer
	}
	if _, err := os.Stat(p.path); err != nil {
		return fmt.Errorf("alert sound: %w", err)
	}

	args := append(p.command[1:len(p.command):len(p.command)], p.argument())
	cmd := exec.CommandContext(ctx, p.command[0], args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return fmt.Errorf("play %s: %w: %s", p.path, err, msg)
		}
		return fmt.Errorf("play %s: %w", p.path, err)
	}
	return nil
}

// argument is the file path, or a SoundPlayer script when running under PowerShell.
func (p *Player) argument() string {
	if p.command[0] == "powershell" {
		return fmt.Sprintf("(New-Object Media.SoundPlayer '%s').PlaySync()", strings.ReplaceAll(p.path, "'", "''"))
	}
	return p.path
}
