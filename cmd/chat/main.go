// Command operator-chat is a terminal client for the operator API: it opens
// a session and sends each line read from stdin as one message.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	prompt = "> "

	// defaultMessageTimeout covers a VM request: four awaited operations at
	// the server's default PROVISION_TIMEOUT, plus headroom.
	defaultMessageTimeout = 150 * time.Minute
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		backendURL string
		wait       time.Duration
		timeout    time.Duration
	)
	cmd := &cobra.Command{
		Use:          "operator-chat",
		Short:        "Chat with the Azure AI Operator",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := waitForBackend(ctx, backendURL, wait); err != nil {
				return err
			}
			c := newChatClient(backendURL, timeout)
			interactive := term.IsTerminal(int(os.Stdin.Fd()))
			return chat(ctx, c, os.Stdin, cmd.OutOrStdout(), interactive)
		},
	}
	cmd.Flags().StringVar(&backendURL, "backend", getEnv("BACKEND_URL", "http://localhost:8080"), "operator API base URL")
	cmd.Flags().DurationVar(&wait, "wait", 30*time.Second, "how long to wait for the API to become healthy")
	cmd.Flags().DurationVar(&timeout, "timeout", defaultMessageTimeout, "per-message request timeout; keep above the server's worst-case VM chain")
	return cmd
}

// chat runs one session until in is exhausted or ctx is cancelled.
func chat(ctx context.Context, c *chatClient, in io.Reader, out io.Writer, interactive bool) error {
	sessionID, greeting, err := c.StartSession(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, greeting)

	scanner := bufio.NewScanner(in)
	for {
		if interactive {
			fmt.Fprint(out, prompt)
		}
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		reply, err := c.Send(ctx, sessionID, line)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		fmt.Fprintln(out, reply)
	}
	return scanner.Err()
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
