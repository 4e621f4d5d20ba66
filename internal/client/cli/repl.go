package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context) error
	Signup(ctx context.Context) error
	Logout(ctx context.Context) error
	Report(ctx context.Context) error
	Retry(ctx context.Context) error
	List(ctx context.Context) error
	Resolved(ctx context.Context) error
	Upvote(ctx context.Context, id string) error
	Assign(ctx context.Context, id string) error
	Progress(ctx context.Context, id string) error
	Resolve(ctx context.Context, id string) error
	Stats(ctx context.Context) error
	Watch(ctx context.Context) error
}

// runREPL reads commands line by line from reader and dispatches them to a
// until EOF, "exit" or "quit". Command errors are printed and the loop
// continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("civic %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		withID := func(fn func(context.Context, string) error) error {
			if len(args) == 0 {
				printlnFn(fmt.Sprintf("Usage: %s <id>", cmd))
				return nil
			}
			return fn(ctx, args[0])
		}

		var cmdErr error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: report, retry, (l)ist, resolved, upvote <id>, assign <id>, progress <id>, resolve <id>, stats, watch, logout, exit")
			} else {
				printlnFn("Available commands: login, signup, report, retry, (l)ist, resolved, upvote <id>, stats, exit")
			}

		case "login":
			cmdErr = a.Login(ctx)
		case "signup":
			cmdErr = a.Signup(ctx)
		case "logout":
			cmdErr = a.Logout(ctx)
		case "report":
			cmdErr = a.Report(ctx)
		case "retry":
			cmdErr = a.Retry(ctx)
		case "l", "list":
			cmdErr = a.List(ctx)
		case "resolved":
			cmdErr = a.Resolved(ctx)
		case "upvote":
			cmdErr = withID(a.Upvote)
		case "assign":
			cmdErr = withID(a.Assign)
		case "progress":
			cmdErr = withID(a.Progress)
		case "resolve":
			cmdErr = withID(a.Resolve)
		case "stats":
			cmdErr = a.Stats(ctx)
		case "watch":
			cmdErr = a.Watch(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil {
			printlnFn("Error:", cmdErr)
		}
	}
}
