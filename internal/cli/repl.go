package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isOpen() bool
	Forms(ctx context.Context) error
	Login(ctx context.Context) error
	Open(ctx context.Context, args []string) error
	Set(ctx context.Context, args []string) error
	Show(ctx context.Context) error
	State(ctx context.Context) error
	Save(ctx context.Context) error
	Submit(ctx context.Context) error
	Attach(ctx context.Context, args []string) error
	Hide(ctx context.Context) error
	Cancel(ctx context.Context) error
	Discard(ctx context.Context) error
	CloseForm(ctx context.Context) error
}

// runREPL reads a line from scanner, parses the first token as the command
// and dispatches to a. The loop exits on scanner EOF or on "exit"/"quit".
//
// Errors returned by command handlers are printed and otherwise ignored so
// one failed command never ends the session.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("draft %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var err error
		switch cmd {
		case "help":
			if a.isOpen() {
				printlnFn("Available commands: set, show, state, save, submit, attach, hide, cancel, discard, close, open, exit")
			} else {
				printlnFn("Available commands: forms, login, open, exit")
			}

		case "forms":
			err = a.Forms(ctx)

		case "login":
			err = a.Login(ctx)

		case "open":
			err = a.Open(ctx, args)

		case "set":
			err = a.Set(ctx, args)

		case "show":
			err = a.Show(ctx)

		case "state":
			err = a.State(ctx)

		case "save":
			err = a.Save(ctx)

		case "submit":
			err = a.Submit(ctx)

		case "attach":
			err = a.Attach(ctx, args)

		case "hide":
			err = a.Hide(ctx)

		case "cancel":
			err = a.Cancel(ctx)

		case "discard":
			err = a.Discard(ctx)

		case "close":
			err = a.CloseForm(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("Error:", err)
		}
	}
}
