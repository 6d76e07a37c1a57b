package bridge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	"github.com/alexhunt7/ssher"
	"golang.org/x/crypto/ssh"
)

// OpenSSH dials target, resolving host aliases from ~/.ssh/config.
func OpenSSH(target string) (*ssh.Client, error) {
	sshConfig, hostPort, err := ssher.ClientConfig(target, "")
	if err != nil {
		return nil, err
	}
	sshConfig.HostKeyCallback = ssh.InsecureIgnoreHostKey()
	return ssh.Dial("tcp", hostPort, sshConfig)
}

// SSHRunner runs the tool on the machine the device is plugged into. The
// connection is opened on first use and reused by later calls.
type SSHRunner struct {
	target string

	mu   sync.Mutex
	conn *ssh.Client
}

func NewSSHRunner(target string) *SSHRunner {
	return &SSHRunner{target: target}
}

func (s *SSHRunner) client() (*ssh.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		return s.conn, nil
	}

	conn, err := OpenSSH(s.target)
	if err != nil {
		return nil, err
	}
	log.Printf("[SSHRunner] connected to %s", s.target)
	s.conn = conn
	return conn, nil
}

func (s *SSHRunner) Run(ctx context.Context, argv []string, stdin io.Reader, stdout io.Writer) (string, int, error) {
	if len(argv) == 0 {
		return "", -1, errors.New("empty command")
	}

	client, err := s.client()
	if err != nil {
		return "", -1, err
	}

	session, err := client.NewSession()
	if err != nil {
		return "", -1, err
	}
	defer session.Close()

	if stdout == nil {
		stdout = io.Discard
	}
	var stderr bytes.Buffer
	session.Stdin = stdin
	session.Stdout = stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() {
		done <- session.Run(QuoteArgs(argv))
	}()

	select {
	case <-ctx.Done():
		session.Signal(ssh.SIGKILL)
		session.Close()
		<-done
		return "", -1, ctx.Err()
	case err = <-done:
	}

	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		if toolMissing(exitErr.ExitStatus(), stderr.String(), argv[0]) {
			return "", -1, fmt.Errorf("%w: %s on %s", ErrToolNotFound, argv[0], s.target)
		}
		return stderr.String(), exitErr.ExitStatus(), nil
	} else if err != nil {
		return "", -1, err
	}
	return stderr.String(), 0, nil
}

// toolMissing reports whether a 127 exit came from the remote shell failing
// to find tool. adb passes device exit codes through, so a 127 from a command
// on the device must keep its stderr.
func toolMissing(status int, stderr, tool string) bool {
	if status != 127 {
		return false
	}
	for _, suffix := range []string{": command not found", ": not found", ": No such file or directory"} {
		if strings.Contains(stderr, tool+suffix) {
			return true
		}
	}
	return false
}

func (s *SSHRunner) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}
