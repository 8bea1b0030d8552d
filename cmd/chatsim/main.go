// Command chatsim runs the booking conversation in a terminal against the
// same wiring as the API server.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/wolfman30/clinic-appointment-bot/internal/app/bootstrap"
	appconfig "github.com/wolfman30/clinic-appointment-bot/internal/config"
	"github.com/wolfman30/clinic-appointment-bot/internal/conversation"
	"github.com/wolfman30/clinic-appointment-bot/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	userID := flag.String("user", "terminal", "conversation user id")
	flag.Parse()

	cfg := appconfig.Load()
	// The simulator always books in memory and stubs email.
	cfg.BookingStore = "memory"
	cfg.EmailProvider = "stub"
	// Keep the terminal readable; only problems are logged.
	logger := logging.NewWithWriter("warn", os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.BuildApp(ctx, cfg, bootstrap.Dependencies{}, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "chatsim:", err)
		os.Exit(1)
	}
	defer app.Close()
	if err := app.Start(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "chatsim:", err)
		os.Exit(1)
	}

	if err := repl(ctx, app.Service, *userID, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "chatsim:", err)
		os.Exit(1)
	}
}

type chatService interface {
	HandleMessage(ctx context.Context, userID, text string) (conversation.Reply, error)
}

// repl feeds each input line to the service and prints the reply until EOF,
// "quit" or a finished conversation.
func repl(ctx context.Context, svc chatService, userID string, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprintln(out, "Type a message to start booking. \"quit\" exits.")
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "quit") || strings.EqualFold(line, "exit") {
			return nil
		}

		reply, err := svc.HandleMessage(ctx, userID, line)
		if err != nil {
			return err
		}
		printReply(out, reply)
		if reply.Kind == conversation.ReplyBooked || reply.Kind == conversation.ReplyCancelled {
			return nil
		}
	}
}

func printReply(out io.Writer, reply conversation.Reply) {
	fmt.Fprintln(out, reply.Text())
	for i, opt := range reply.Options {
		fmt.Fprintf(out, "  %d) %s\n", i+1, opt)
	}
}
