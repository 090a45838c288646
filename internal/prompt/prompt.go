// Package prompt asks the operator for missing settings on the console.
//
// Secrets are read without echo when stdin is a terminal. Piped input is read
// line by line so the CLI can be scripted.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/BTreeMap/CommentPipe/internal/util"
	"golang.org/x/term"
)

// ErrNotInteractive is returned when input is required but none can be read.
var ErrNotInteractive = errors.New("no interactive input available")

// Console reads answers from an input stream and writes questions to out.
type Console struct {
	in       *bufio.Reader
	out      io.Writer
	fd       int
	terminal bool
}

// NewConsole prompts on out and reads from in. Hidden input is used for secrets
// when in is a terminal.
func NewConsole(in *os.File, out io.Writer) *Console {
	fd := int(in.Fd())
	return &Console{
		in:       bufio.NewReader(in),
		out:      out,
		fd:       fd,
		terminal: term.IsTerminal(fd),
	}
}

// NewReaderConsole reads plain lines from r. Secrets are echoed like any other input.
func NewReaderConsole(r io.Reader, out io.Writer) *Console {
	return &Console{in: bufio.NewReader(r), out: out, fd: -1}
}

// Interactive reports whether input comes from a terminal.
func (c *Console) Interactive() bool {
	return c.terminal
}

// Printf writes informational text to the console.
func (c *Console) Printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

// Line asks question and returns the trimmed answer.
func (c *Console) Line(question string) (string, error) {
	fmt.Fprint(c.out, question)
	return c.readLine()
}

// LineContext is Line that gives up when ctx is done. An abandoned read keeps
// waiting for input in the background, so the console should not be reused
// after a cancellation.
func (c *Console) LineContext(ctx context.Context, question string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fmt.Fprint(c.out, question)

	type answer struct {
		line string
		err  error
	}
	done := make(chan answer, 1)
	go func() {
		line, err := c.readLine()
		done <- answer{line, err}
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(c.out)
		return "", ctx.Err()
	case a := <-done:
		return a.line, a.err
	}
}

func (c *Console) readLine() (string, error) {
	line, err := c.in.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("reading answer: %w", err)
		}
		if line == "" {
			return "", ErrNotInteractive
		}
	}
	return strings.TrimSpace(line), nil
}

// Secret asks question and reads the answer without echo on a terminal.
func (c *Console) Secret(question string) (string, error) {
	if !c.terminal {
		return c.Line(question)
	}
	fmt.Fprint(c.out, question)
	b, err := term.ReadPassword(c.fd)
	fmt.Fprintln(c.out)
	if err != nil {
		return "", fmt.Errorf("reading hidden input: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

// YesNo asks a yes/no question. An empty or unrecognised answer returns def.
func (c *Console) YesNo(question string, def bool) (bool, error) {
	answer, err := c.Line(question)
	if err != nil {
		return def, err
	}
	v, ok := util.ParseBool(answer)
	if !ok {
		return def, nil
	}
	return v, nil
}

// Int asks for a whole number. An empty or invalid answer returns def.
func (c *Console) Int(question string, def int) (int, error) {
	answer, err := c.Line(question)
	if err != nil {
		return def, err
	}
	if answer == "" {
		return def, nil
	}
	n, err := strconv.Atoi(answer)
	if err != nil || n <= 0 {
		return def, nil
	}
	return n, nil
}

// RequestVerificationCode asks for the two-factor code sent to the account owner.
func (c *Console) RequestVerificationCode(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c.Printf("🔐 Two-Factor Authentication detected!\n")
	c.Printf("📱 Please check your authenticator app or SMS for the 6-digit code\n")
	return c.LineContext(ctx, "Enter your 6-digit 2FA code: ")
}
