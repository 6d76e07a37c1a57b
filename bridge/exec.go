package bridge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sync/errgroup"
)

// LocalRunner runs the tool on this machine.
type LocalRunner struct {
	// Env replaces the process environment when non-nil.
	Env []string
}

func (r LocalRunner) Run(ctx context.Context, argv []string, stdin io.Reader, stdout io.Writer) (string, int, error) {
	if len(argv) == 0 {
		return "", -1, errors.New("empty command")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Env = os.Environ()
	if r.Env != nil {
		cmd.Env = r.Env
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if stdout == nil {
		stdout = io.Discard
	}
	out, err := cmd.StdoutPipe()
	if err != nil {
		return "", -1, err
	}

	var in io.WriteCloser
	if stdin != nil {
		in, err = cmd.StdinPipe()
		if err != nil {
			return "", -1, err
		}
	}

	err = cmd.Start()
	if errors.Is(err, exec.ErrNotFound) {
		return "", -1, fmt.Errorf("%w: %s", ErrToolNotFound, argv[0])
	} else if err != nil {
		return "", -1, err
	}

	var wg errgroup.Group
	wg.Go(func() error {
		_, err := io.Copy(stdout, out)
		if err != nil {
			// keep the process from blocking on a full pipe
			io.Copy(io.Discard, out)
		}
		return err
	})
	if in != nil {
		wg.Go(func() error {
			_, err := io.Copy(in, stdin)
			in.Close()
			if errors.Is(err, syscall.EPIPE) || errors.Is(err, os.ErrClosed) {
				// the process stopped reading; its exit status tells the rest
				return nil
			}
			return err
		})
	}

	copyErr := wg.Wait()
	waitErr := cmd.Wait()

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return stderr.String(), exitErr.ExitCode(), nil
	} else if waitErr != nil {
		return "", -1, waitErr
	}

	if copyErr != nil {
		return "", -1, copyErr
	}
	return stderr.String(), 0, nil
}
