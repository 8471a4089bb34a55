package chat

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"SwapChat/internal/session"
)

// App is the line-oriented front end of a Controller
type App struct {
	ctrl   *Controller
	in     io.Reader
	out    io.Writer
	logger *slog.Logger
}

// NewApp creates a new App reading commands from in and printing to out
func NewApp(ctrl *Controller, in io.Reader, out io.Writer, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	return &App{ctrl: ctrl, in: in, out: out, logger: logger}
}

// Run reads input until EOF or /quit. A non-nil initial session is loaded first.
func (a *App) Run(ctx context.Context, initial *session.Session) error {
	defer a.ctrl.Dispose()

	fmt.Fprintln(a.out, "=== SwapChat ===")
	fmt.Fprintln(a.out, "Type /help for commands, /quit to exit")
	fmt.Fprintln(a.out)

	if initial != nil {
		if err := a.ctrl.Start(ctx, *initial); err != nil {
			a.logger.Error("initial load failed", "error", err)
		}
	}

	scanner := bufio.NewScanner(a.in)
	for {
		fmt.Fprint(a.out, "> ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			shouldQuit, err := a.handleCommand(ctx, input)
			if err != nil {
				fmt.Fprintf(a.out, "Error: %v\n", err)
				a.logger.Error("command error", "error", err)
			}
			if shouldQuit {
				break
			}
			continue
		}

		// errors are already shown by the controller
		if err := a.ctrl.ComposeAndSend(ctx, input); err != nil {
			a.logger.Error("failed to send message", "error", err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	fmt.Fprintln(a.out, "Goodbye!")
	return nil
}

// handleCommand handles slash commands. Controller errors are surfaced by the
// controller itself; only usage errors are returned.
func (a *App) handleCommand(ctx context.Context, cmd string) (bool, error) {
	parts := strings.Fields(cmd)

	switch parts[0] {
	case "/quit", "/exit":
		return true, nil

	case "/load":
		if len(parts) != 3 {
			return false, fmt.Errorf("usage: /load <conversation-id> <user-id>")
		}
		conversationID, err := parseID(parts[1])
		if err != nil {
			return false, err
		}
		userID, err := parseID(parts[2])
		if err != nil {
			return false, err
		}
		if err := a.ctrl.Start(ctx, session.Session{ConversationID: conversationID, LocalUserID: userID}); err != nil {
			a.logger.Error("load failed", "error", err)
		}
		return false, nil

	case "/switch":
		if len(parts) != 2 {
			return false, fmt.Errorf("usage: /switch <conversation-id>")
		}
		conversationID, err := parseID(parts[1])
		if err != nil {
			return false, err
		}
		if err := a.ctrl.SwitchConversation(ctx, conversationID); err != nil {
			a.logger.Error("switch failed", "error", err)
		}
		return false, nil

	case "/reload":
		if err := a.ctrl.Reload(ctx); err != nil {
			a.logger.Error("reload failed", "error", err)
		}
		return false, nil

	case "/whoami":
		sess, ok := a.ctrl.Session()
		if !ok {
			fmt.Fprintln(a.out, "No conversation loaded. Use /load <conversation-id> <user-id>.")
			return false, nil
		}
		fmt.Fprintf(a.out, "Conversation %d as user %d\n", sess.ConversationID, sess.LocalUserID)
		return false, nil

	case "/help":
		fmt.Fprintln(a.out, "Available commands:")
		fmt.Fprintln(a.out, "  /load <conversation> <user> - Load a conversation as the given user")
		fmt.Fprintln(a.out, "  /switch <conversation>      - Switch to another conversation")
		fmt.Fprintln(a.out, "  /reload                     - Fetch the conversation again")
		fmt.Fprintln(a.out, "  /whoami                     - Show the active conversation and user")
		fmt.Fprintln(a.out, "  /quit, /exit                - Exit")
		fmt.Fprintln(a.out, "Any other input is sent as a message.")
		return false, nil

	default:
		return false, fmt.Errorf("unknown command: %s (try /help)", parts[0])
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q: must be a positive integer", s)
	}
	return id, nil
}
