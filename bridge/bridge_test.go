package bridge

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingRunner records the argv and returns pre-set output.
type recordingRunner struct {
	lastArgv  []string
	lastStdin string
	stdout    string
	stderr    string
	exitCode  int
	err       error
}

func (r *recordingRunner) Run(_ context.Context, argv []string, stdin io.Reader, stdout io.Writer) (string, int, error) {
	r.lastArgv = argv
	if stdin != nil {
		data, _ := io.ReadAll(stdin)
		r.lastStdin = string(data)
	}
	if stdout != nil {
		io.WriteString(stdout, r.stdout)
	}
	return r.stderr, r.exitCode, r.err
}

func TestExecuteScopesToDevice(t *testing.T) {
	runner := &recordingRunner{stdout: "ok\n"}
	b := New("", runner)

	res, err := b.Execute(context.Background(), "emulator-5554", "shell", "ls")
	require.NoError(t, err)
	assert.Equal(t, []string{"adb", "-s", "emulator-5554", "shell", "ls"}, runner.lastArgv)
	assert.Equal(t, "ok\n", res.Stdout)
	assert.True(t, res.OK())
	assert.NoError(t, res.Err())
}

func TestExecuteWithoutDevice(t *testing.T) {
	runner := &recordingRunner{}
	b := New("/opt/platform-tools/adb", runner)

	_, err := b.Execute(context.Background(), "", "devices")
	require.NoError(t, err)
	assert.Equal(t, []string{"/opt/platform-tools/adb", "devices"}, runner.lastArgv)
}

func TestExecuteNonZeroIsNotAnError(t *testing.T) {
	runner := &recordingRunner{stderr: "error: device 'x' not found\n", exitCode: 1}
	b := New("adb", runner)

	res, err := b.Execute(context.Background(), "x", "shell", "ls")
	require.NoError(t, err)
	assert.Equal(t, 1, res.ExitCode)

	cmdErr := res.Err()
	require.Error(t, cmdErr)
	assert.Equal(t, "error: device 'x' not found", cmdErr.Error())

	var typed *CommandError
	require.ErrorAs(t, cmdErr, &typed)
	assert.Equal(t, 1, typed.ExitCode)
}

func TestCommandErrorWithoutStderr(t *testing.T) {
	err := &CommandError{ExitCode: 2}
	assert.Equal(t, "exit status 2", err.Error())
}

func TestExecuteToAndFrom(t *testing.T) {
	runner := &recordingRunner{stdout: "payload"}
	b := New("adb", runner)

	var sink bytes.Buffer
	res, err := b.ExecuteTo(context.Background(), "", &sink, "exec-out", "cat", "'/sdcard/a'")
	require.NoError(t, err)
	assert.Equal(t, "payload", sink.String())
	assert.Empty(t, res.Stdout)

	_, err = b.ExecuteFrom(context.Background(), "", strings.NewReader("input"), "shell", "sh")
	require.NoError(t, err)
	assert.Equal(t, "input", runner.lastStdin)
}

func TestQuote(t *testing.T) {
	assert.Equal(t, "'/sdcard/My Files'", Quote("/sdcard/My Files"))
	assert.Equal(t, `'it'\''s'`, Quote("it's"))
	assert.Equal(t, `'adb' 'shell' 'ls -l'`, QuoteArgs([]string{"adb", "shell", "ls -l"}))
}

func TestLocalRunner(t *testing.T) {
	ctx := context.Background()
	var r LocalRunner

	var out bytes.Buffer
	stderr, code, err := r.Run(ctx, []string{"sh", "-c", "echo out; echo err >&2; exit 3"}, nil, &out)
	require.NoError(t, err)
	assert.Equal(t, 3, code)
	assert.Equal(t, "out\n", out.String())
	assert.Equal(t, "err\n", stderr)

	out.Reset()
	_, code, err = r.Run(ctx, []string{"cat"}, strings.NewReader("round trip"), &out)
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Equal(t, "round trip", out.String())
}

func TestLocalRunnerMissingTool(t *testing.T) {
	_, _, err := LocalRunner{}.Run(context.Background(), []string{"definitely-not-an-adb-binary"}, nil, nil)
	assert.ErrorIs(t, err, ErrToolNotFound)
}

func TestToolMissing(t *testing.T) {
	assert.True(t, toolMissing(127, "bash: adb: command not found\n", "adb"))
	assert.True(t, toolMissing(127, "sh: 1: adb: not found\n", "adb"))
	assert.True(t, toolMissing(127, "bash: /opt/sdk/adb: No such file or directory\n", "/opt/sdk/adb"))

	// a device command that is missing comes back through adb with the same status
	assert.False(t, toolMissing(127, "/system/bin/sh: sqlite3: not found\n", "adb"))
	assert.False(t, toolMissing(127, "", "adb"))
	assert.False(t, toolMissing(1, "bash: adb: command not found\n", "adb"))
}
