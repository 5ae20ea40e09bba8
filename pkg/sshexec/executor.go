package sshexec

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"

	"github.com/flotilla-sh/flotilla/pkg/log"
)

const (
	defaultPort        = 22
	defaultDialTimeout = 10 * time.Second

	// stderrTailLines bounds how much stderr is captured into a
	// CommandError; full output still streams to the log.
	stderrTailLines = 20
)

// Target identifies the remote machine and credentials for one call.
// The private key lives only for the duration of the call.
type Target struct {
	Host       string
	Port       int
	User       string
	PrivateKey []byte
}

// Runner executes an ordered command sequence on a remote host.
// Implemented by Executor; faked in tests.
type Runner interface {
	RunCommands(ctx context.Context, target Target, commands []string) error
}

// CommandError reports a failed remote command with its exit code and
// the tail of its stderr.
type CommandError struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("remote command failed (exit %d): %s", e.ExitCode, e.Command)
	if e.Stderr != "" {
		msg += "\nstderr: " + e.Stderr
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// Executor runs command chains over a single authenticated SSH
// connection per call. Any command failure aborts the remainder of the
// chain.
type Executor struct {
	dialTimeout time.Duration
}

// NewExecutor creates an executor. A zero dialTimeout uses the default.
func NewExecutor(dialTimeout time.Duration) *Executor {
	if dialTimeout == 0 {
		dialTimeout = defaultDialTimeout
	}
	return &Executor{dialTimeout: dialTimeout}
}

// RunCommands opens one connection to the target and executes the
// commands in order, aborting on the first failure. Stdout and stderr
// stream line-by-line to the log; the key material is never logged.
func (e *Executor) RunCommands(ctx context.Context, target Target, commands []string) error {
	if err := validateTarget(target); err != nil {
		return err
	}
	if len(commands) == 0 {
		return fmt.Errorf("no commands to run")
	}

	signer, err := ssh.ParsePrivateKey(target.PrivateKey)
	if err != nil {
		return fmt.Errorf("failed to parse private key: %w", err)
	}

	port := target.Port
	if port == 0 {
		port = defaultPort
	}
	addr := net.JoinHostPort(target.Host, fmt.Sprintf("%d", port))

	config := &ssh.ClientConfig{
		User: target.User,
		Auth: []ssh.AuthMethod{
			ssh.PublicKeys(signer),
		},
		// Freshly provisioned machines have no recorded host key yet
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec
		Timeout:         e.dialTimeout,
	}

	client, err := e.dial(ctx, addr, config)
	if err != nil {
		return fmt.Errorf("failed to establish SSH connection to %s: %w", addr, err)
	}
	defer func() { _ = client.Close() }()

	// Unblock a command stuck past context cancellation by tearing
	// down the underlying connection.
	watchdogDone := make(chan struct{})
	defer close(watchdogDone)
	go func() {
		select {
		case <-ctx.Done():
			_ = client.Close()
		case <-watchdogDone:
		}
	}()

	logger := log.WithHost(target.Host).With().Str("component", "sshexec").Logger()

	for i, command := range commands {
		logger.Debug().Int("step", i+1).Int("total", len(commands)).Msg("running remote command")

		if err := runCommand(client, logger, command); err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("remote execution aborted: %w", ctx.Err())
			}
			return err
		}
	}

	return nil
}

// dial establishes the TCP connection under the caller's context before
// the SSH handshake.
func (e *Executor) dial(ctx context.Context, addr string, config *ssh.ClientConfig) (*ssh.Client, error) {
	d := net.Dialer{Timeout: e.dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	c, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return ssh.NewClient(c, chans, reqs), nil
}

// runCommand executes a single command on a fresh session, streaming
// output per line and capturing a bounded stderr tail for errors.
func runCommand(client *ssh.Client, logger zerolog.Logger, command string) error {
	session, err := client.NewSession()
	if err != nil {
		return fmt.Errorf("failed to create SSH session: %w", err)
	}
	defer func() { _ = session.Close() }()

	stdout, err := session.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to open stdout pipe: %w", err)
	}
	stderr, err := session.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to open stderr pipe: %w", err)
	}

	tail := newTailBuffer(stderrTailLines)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		streamLines(stdout, func(line string) {
			logger.Debug().Str("stream", "stdout").Msg(line)
		})
	}()
	go func() {
		defer wg.Done()
		streamLines(stderr, func(line string) {
			tail.add(line)
			logger.Warn().Str("stream", "stderr").Msg(line)
		})
	}()

	if err := session.Start(command); err != nil {
		return fmt.Errorf("failed to start command: %w", err)
	}

	runErr := session.Wait()
	wg.Wait()

	if runErr != nil {
		exitCode := -1
		var exitErr *ssh.ExitError
		if errors.As(runErr, &exitErr) {
			exitCode = exitErr.ExitStatus()
		}
		return &CommandError{
			Command:  command,
			ExitCode: exitCode,
			Stderr:   tail.String(),
			Err:      runErr,
		}
	}
	return nil
}

// streamLines reads a pipe line by line until EOF
func streamLines(r io.Reader, emit func(string)) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		emit(scanner.Text())
	}
}

func validateTarget(target Target) error {
	if target.Host == "" {
		return fmt.Errorf("target host cannot be empty")
	}
	if target.User == "" {
		return fmt.Errorf("target user cannot be empty")
	}
	if len(target.PrivateKey) == 0 {
		return fmt.Errorf("target private key cannot be empty")
	}
	return nil
}

// tailBuffer keeps the most recent lines written to it
type tailBuffer struct {
	mu    sync.Mutex
	lines []string
	max   int
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (b *tailBuffer) add(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = append(b.lines, line)
	if len(b.lines) > b.max {
		b.lines = b.lines[len(b.lines)-b.max:]
	}
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Join(b.lines, "\n")
}
