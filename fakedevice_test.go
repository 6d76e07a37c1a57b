package adbfs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/b1naryth1ef/adbfs/bridge"
)

// fakeDevice emulates enough of adb and the device shell to exercise the
// transfer paths. Files under /data/data/<pkg> are only reachable as <pkg>
// through run-as.
type fakeDevice struct {
	files map[string][]byte
	calls [][]string

	// failCat makes `cat` stop after this many bytes and exit non-zero.
	failCat int
	// failCmd makes this device shell command exit non-zero.
	failCmd string
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{files: map[string][]byte{}, failCat: -1}
}

func (d *fakeDevice) newBridge() *bridge.Bridge {
	return bridge.New("adb", d)
}

func (d *fakeDevice) Run(_ context.Context, argv []string, stdin io.Reader, stdout io.Writer) (string, int, error) {
	d.calls = append(d.calls, argv)
	if stdout == nil {
		stdout = io.Discard
	}

	args := argv[1:]
	if len(args) > 1 && args[0] == "-s" {
		args = args[2:]
	}

	switch args[0] {
	case "devices":
		io.WriteString(stdout, "List of devices attached\nemulator-5554\tdevice\n")
		return "", 0, nil
	case "pull":
		if !d.readable(args[1], "") {
			return fmt.Sprintf("adb: error: failed to stat remote object '%s': Permission denied\n", args[1]), 1, nil
		}
		data, ok := d.files[args[1]]
		if !ok {
			return fmt.Sprintf("adb: error: failed to stat remote object '%s': No such file or directory\n", args[1]), 1, nil
		}
		if err := os.WriteFile(args[2], data, 0o644); err != nil {
			return "", -1, err
		}
		return "", 0, nil
	case "push":
		if !d.readable(args[2], "") {
			return fmt.Sprintf("adb: error: failed to copy '%s' to '%s': Permission denied\n", args[1], args[2]), 1, nil
		}
		data, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Sprintf("adb: error: cannot stat '%s': No such file or directory\n", args[1]), 1, nil
		}
		d.files[args[2]] = data
		return "", 0, nil
	case "shell", "exec-out":
		return d.sh(splitShell(strings.Join(args[1:], " ")), stdin, stdout)
	}
	return "unknown command " + args[0] + "\n", 1, nil
}

func (d *fakeDevice) sh(words []string, stdin io.Reader, stdout io.Writer) (string, int, error) {
	user := ""
	if len(words) > 2 && words[0] == EscalationVerb {
		user = words[1]
		words = words[2:]
	}
	if words[0] == d.failCmd {
		return d.failCmd + ": failed\n", 1, nil
	}

	switch words[0] {
	case "cat":
		p := words[1]
		data, ok := d.files[p]
		if !ok || !d.readable(p, user) {
			return "cat: " + p + ": No such file or directory\n", 1, nil
		}
		if d.failCat >= 0 && d.failCat < len(data) {
			stdout.Write(data[:d.failCat])
			return "cat: " + p + ": I/O error\n", 1, nil
		}
		stdout.Write(data)
		return "", 0, nil
	case "cp":
		src, dst := words[1], words[2]
		data, ok := d.files[src]
		if !ok || !d.readable(src, user) {
			return "cp: " + src + ": No such file or directory\n", 1, nil
		}
		if !d.readable(dst, user) {
			return "cp: " + dst + ": Permission denied\n", 1, nil
		}
		d.files[dst] = append([]byte(nil), data...)
		return "", 0, nil
	case "rm":
		p := words[len(words)-1]
		if !d.readable(p, user) {
			return "rm: " + p + ": Permission denied\n", 1, nil
		}
		for name := range d.files {
			if name == p || strings.HasPrefix(name, p+"/") {
				delete(d.files, name)
			}
		}
		return "", 0, nil
	case "ls":
		dir := words[len(words)-1]
		if !d.readable(dir, user) {
			return "ls: " + dir + ": Permission denied\n", 1, nil
		}
		io.WriteString(stdout, d.listing(dir))
		return "", 0, nil
	case "sh":
		inner := splitShell(words[2])
		if len(inner) != 3 || inner[0] != "cat" || inner[1] != ">" {
			return "sh: unsupported\n", 2, nil
		}
		p := inner[2]
		if !d.readable(p, user) {
			return "sh: " + p + ": Permission denied\n", 1, nil
		}
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", -1, err
		}
		d.files[p] = data
		return "", 0, nil
	}
	return words[0] + ": not found\n", 127, nil
}

func (d *fakeDevice) readable(p, user string) bool {
	rest, ok := strings.CutPrefix(p, AppDataRoot+"/")
	if !ok {
		return true
	}
	pkg, _, _ := strings.Cut(rest, "/")
	return pkg == user
}

func (d *fakeDevice) listing(dir string) string {
	var names []string
	for name := range d.files {
		if path.Dir(name) == dir {
			names = append(names, path.Base(name))
		}
	}
	sort.Strings(names)

	var b strings.Builder
	fmt.Fprintf(&b, "total %d\n", len(names))
	for _, name := range names {
		fmt.Fprintf(&b, "-rw-rw---- 1 u0_a1 u0_a1 %d 2024-05-01 10:00 %s\n", len(d.files[path.Join(dir, name)]), name)
	}
	return b.String()
}

// splitShell splits a command line the way sh does for single quotes and
// backslash escapes.
func splitShell(line string) []string {
	var words []string
	var word strings.Builder
	inWord, quoted := false, false

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case quoted:
			if c == '\'' {
				quoted = false
			} else {
				word.WriteByte(c)
			}
		case c == '\'':
			quoted, inWord = true, true
		case c == '\\' && i+1 < len(line):
			i++
			word.WriteByte(line[i])
			inWord = true
		case c == ' ' || c == '\t':
			if inWord {
				words = append(words, word.String())
				word.Reset()
				inWord = false
			}
		default:
			word.WriteByte(c)
			inWord = true
		}
	}
	if inWord {
		words = append(words, word.String())
	}
	return words
}
