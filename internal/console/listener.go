// Package console reads operator commands line by line and writes back the
// handler's reply.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
)

// CommandHandler processes one command and returns the reply text.
type CommandHandler func(ctx context.Context, command string) string

// Listen blocks until r is exhausted or ctx is cancelled. Only lines starting
// with "/" are treated as commands; anything else gets a hint.
//
// A command already being handled when ctx is cancelled runs to completion
// before Listen returns. If r is an io.Closer it is closed on cancellation so
// the reading goroutine is released from a blocked Read.
func Listen(ctx context.Context, r io.Reader, w io.Writer, handler CommandHandler, logger *zap.Logger) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	logger.Info("console listener started")

	for {
		select {
		case <-ctx.Done():
			if c, ok := r.(io.Closer); ok {
				if err := c.Close(); err != nil {
					logger.Debug("closing command input", zap.Error(err))
				}
			}
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					if err != nil {
						return fmt.Errorf("reading commands: %w", err)
					}
				default:
				}
				return nil
			}

			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}
			if !strings.HasPrefix(text, "/") {
				fmt.Fprintln(w, "Commands start with '/'. Try /help.")
				continue
			}

			logger.Debug("command received", zap.String("command", text))
			if reply := handler(ctx, text); reply != "" {
				fmt.Fprintln(w, reply)
			}
		}
	}
}
