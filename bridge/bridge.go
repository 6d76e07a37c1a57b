// Package bridge runs the device-bridge tool (adb) and captures what it prints.
//
// Every call spawns exactly one process through a Runner. A non-zero exit is
// not an error at this layer: it is reported in Result so callers can decide
// what the failure means.
package bridge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
)

var ErrToolNotFound = errors.New("bridge tool not found")

// Runner spawns a single process. stdin may be nil. stdout may be nil, in
// which case output is discarded. err is only set when the process could not
// be run at all; exitCode carries the process status otherwise.
type Runner interface {
	Run(ctx context.Context, argv []string, stdin io.Reader, stdout io.Writer) (stderr string, exitCode int, err error)
}

type Result struct {
	Args     []string
	Stdout   string
	Stderr   string
	ExitCode int
}

func (r *Result) OK() bool {
	return r.ExitCode == 0
}

// Err returns a *CommandError for a non-zero exit and nil otherwise.
func (r *Result) Err() error {
	if r.OK() {
		return nil
	}
	return &CommandError{Args: r.Args, ExitCode: r.ExitCode, Stderr: r.Stderr}
}

type CommandError struct {
	Args     []string
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("exit status %d", e.ExitCode)
	}
	return msg
}

type Bridge struct {
	tool    string
	runner  Runner
	verbose bool
}

func New(tool string, runner Runner) *Bridge {
	if tool == "" {
		tool = "adb"
	}
	return &Bridge{tool: tool, runner: runner}
}

func (b *Bridge) SetVerbose(verbose bool) {
	b.verbose = verbose
}

// argv builds `<tool> [-s <serial>] <args...>`.
func (b *Bridge) argv(serial string, args []string) []string {
	argv := make([]string, 0, len(args)+3)
	argv = append(argv, b.tool)
	if strings.TrimSpace(serial) != "" {
		argv = append(argv, "-s", serial)
	}
	return append(argv, args...)
}

func (b *Bridge) run(ctx context.Context, serial string, stdin io.Reader, stdout io.Writer, args []string) (*Result, error) {
	argv := b.argv(serial, args)
	if b.verbose {
		log.Printf("[Bridge] %s", strings.Join(argv, " "))
	}

	stderr, code, err := b.runner.Run(ctx, argv, stdin, stdout)
	if err != nil {
		return nil, err
	}

	if b.verbose && code != 0 {
		log.Printf("[Bridge] exit %d: %s", code, strings.TrimSpace(stderr))
	}
	return &Result{Args: argv, Stderr: stderr, ExitCode: code}, nil
}

// Execute runs the tool and buffers stdout into the result.
func (b *Bridge) Execute(ctx context.Context, serial string, args ...string) (*Result, error) {
	var stdout bytes.Buffer
	res, err := b.run(ctx, serial, nil, &stdout, args)
	if err != nil {
		return nil, err
	}
	res.Stdout = stdout.String()
	return res, nil
}

// ExecuteTo streams stdout into dst instead of buffering it.
func (b *Bridge) ExecuteTo(ctx context.Context, serial string, dst io.Writer, args ...string) (*Result, error) {
	return b.run(ctx, serial, nil, dst, args)
}

// ExecuteFrom feeds src to the process stdin. Stdout is still buffered.
func (b *Bridge) ExecuteFrom(ctx context.Context, serial string, src io.Reader, args ...string) (*Result, error) {
	var stdout bytes.Buffer
	res, err := b.run(ctx, serial, src, &stdout, args)
	if err != nil {
		return nil, err
	}
	res.Stdout = stdout.String()
	return res, nil
}

// Quote single-quotes s for a POSIX shell.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "'\\''") + "'"
}

// QuoteArgs quotes every element and joins them with spaces.
func QuoteArgs(args []string) string {
	quoted := make([]string, len(args))
	for i, arg := range args {
		quoted[i] = Quote(arg)
	}
	return strings.Join(quoted, " ")
}
