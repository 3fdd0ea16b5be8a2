package clipboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

var ErrUnavailable = errors.New("no clipboard command available")

const copyTimeout = 4 * time.Second

type commandSpec struct {
	name string
	args []string
	// asyncFire marks helpers that keep running to own the X selection; they
	// are started detached instead of awaited.
	asyncFire bool
}

func candidates(goos string) []commandSpec {
	if goos == "darwin" {
		return []commandSpec{{name: "pbcopy"}}
	}

	return []commandSpec{
		{name: "wl-copy"},
		{name: "xclip", args: []string{"-selection", "clipboard", "-in", "-silent"}, asyncFire: true},
		{name: "xsel", args: []string{"--input", "--clipboard"}, asyncFire: true},
	}
}

// CopyText places value on the system clipboard using the first available
// helper for the current platform.
func CopyText(ctx context.Context, value string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	spec, err := detectCommand(runtime.GOOS)
	if err != nil {
		return err
	}

	if spec.asyncFire {
		return copyWithDetachedCommand(spec, value)
	}

	copyCtx, cancel := context.WithTimeout(ctx, copyTimeout)
	defer cancel()

	cmd := exec.CommandContext(copyCtx, spec.name, spec.args...)
	cmd.Stdin = strings.NewReader(value)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard

	if runErr := cmd.Run(); runErr != nil {
		if errors.Is(copyCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("copy to clipboard timed out: %w", copyCtx.Err())
		}
		return fmt.Errorf("copy to clipboard: %w", runErr)
	}

	return nil
}

func detectCommand(goos string) (commandSpec, error) {
	for _, spec := range candidates(goos) {
		if _, err := exec.LookPath(spec.name); err == nil {
			return spec, nil
		}
	}
	return commandSpec{}, ErrUnavailable
}

func copyWithDetachedCommand(spec commandSpec, value string) error {
	cmd := exec.Command(spec.name, spec.args...)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open clipboard stdin: %w", err)
	}

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("start clipboard command: %w", err)
	}

	if _, err := io.WriteString(stdin, value); err != nil {
		_ = stdin.Close()
		_ = cmd.Process.Kill()
		return fmt.Errorf("write clipboard data: %w", err)
	}

	if err := stdin.Close(); err != nil {
		_ = cmd.Process.Kill()
		return fmt.Errorf("close clipboard stdin: %w", err)
	}

	_ = cmd.Process.Release()
	return nil
}
