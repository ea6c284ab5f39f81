package campus

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/luoyuxi/campusfeed/internal/domain/model"
	"github.com/luoyuxi/campusfeed/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.MFAPrompter = (*StdinPrompter)(nil)

// StdinPrompter reads the one-time code from an interactive terminal. The
// read happens in its own goroutine so the login attempt can still be
// abandoned through ctx; the goroutine itself stays blocked on the reader
// until a line arrives, which is acceptable for a process-lifetime stdin.
type StdinPrompter struct {
	In  io.Reader
	Out io.Writer
}

// Code prompts for and returns the verification code, or the context error if
// the caller gave up waiting first.
func (p *StdinPrompter) Code(ctx context.Context, channel model.MFAChannel) (string, error) {
	fmt.Fprintf(p.Out, "verification code sent via %s, enter code: ", channel)

	type result struct {
		code string
		err  error
	}
	ch := make(chan result, 1)

	go func() {
		line, err := bufio.NewReader(p.In).ReadString('\n')
		ch <- result{code: strings.TrimSpace(line), err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.err != nil {
			return "", fmt.Errorf("read verification code: %w", res.err)
		}
		if res.code == "" {
			return "", fmt.Errorf("empty verification code")
		}
		return res.code, nil
	}
}
