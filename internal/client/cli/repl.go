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
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	AddFolder(ctx context.Context, args []string) error
	Folders(ctx context.Context) error
	Rescan(ctx context.Context, args []string) error
	Status(ctx context.Context, args []string) error
	Upload(ctx context.Context, args []string) error
	RemoveFolder(ctx context.Context, args []string) error
	Logout(ctx context.Context) error
}

// runREPL starts a read-eval-print loop for the assetvault CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// Prompt & Commands
//
//	Not logged in:
//	  - help           — show available commands
//	  - register       — create an account
//	  - login          — authenticate
//	  - add | folders | scan | status — manage the local cache offline
//	  - exit | quit    — leave the program
//
//	Logged in, additionally:
//	  - upload <folder-id> [provider]  — reconcile a folder's candidates
//	  - logout         — forget the session token
//
// Errors returned by command handlers are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	printlnFn("assetvault CLI (type 'help' for commands)")

	for {
		printlnFn(fmt.Sprintf("av> %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		cmd := parts[0]
		args := parts[1:]

		var err error

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: add, folders, scan, status, upload, remove, logout, exit")
			} else {
				printlnFn("Available commands: register, login, add, folders, scan, status, exit")
			}
		case "register":
			err = a.Register(ctx)
		case "login":
			err = a.Login(ctx)
		case "add":
			err = a.AddFolder(ctx, args)
		case "folders":
			err = a.Folders(ctx)
		case "scan":
			err = a.Rescan(ctx, args)
		case "status":
			err = a.Status(ctx, args)
		case "upload":
			err = a.Upload(ctx, args)
		case "remove":
			err = a.RemoveFolder(ctx, args)
		case "logout":
			err = a.Logout(ctx)
		case "exit", "quit":
			printlnFn("Bye!")
			return
		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("Error:", err.Error())
		}
	}
}
