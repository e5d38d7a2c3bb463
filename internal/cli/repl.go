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
	List(ctx context.Context, domain string) error
	Show(ctx context.Context, domain, id string) error
	Set(ctx context.Context, domain, id, jsonData string) error
	Del(ctx context.Context, domain, id string) error
	Sync(ctx context.Context) error
	Pending(ctx context.Context) error
	SetOnline(online bool)
}

// runREPL starts a simple read–eval–print loop.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// Commands:
//
//	list <domain>              — list records of a collection
//	show <domain> <id>         — print one record as JSON
//	set <domain> [id] <json>   — insert (no id) or update (with id)
//	del <domain> <id>          — delete a record
//	sync                       — replay queued changes now
//	pending                    — show the queue length
//	online | offline           — assert connectivity manually
//	status                     — show the current connectivity
//	help, exit | quit
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("camposanto> %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var err error
		switch cmd {
		case "help":
			printlnFn("Available commands: list, show, set, del, sync, pending, online, offline, status, exit")
		case "list":
			if len(args) != 1 {
				err = fmt.Errorf("usage: list <domain>")
				break
			}
			err = a.List(ctx, args[0])
		case "show":
			if len(args) != 2 {
				err = fmt.Errorf("usage: show <domain> <id>")
				break
			}
			err = a.Show(ctx, args[0], args[1])
		case "set":
			var domain, id, jsonData string
			domain, id, jsonData, err = parseSetArgs(args)
			if err != nil {
				break
			}
			err = a.Set(ctx, domain, id, jsonData)
		case "del":
			if len(args) != 2 {
				err = fmt.Errorf("usage: del <domain> <id>")
				break
			}
			err = a.Del(ctx, args[0], args[1])
		case "sync":
			err = a.Sync(ctx)
		case "pending":
			err = a.Pending(ctx)
		case "online":
			a.SetOnline(true)
		case "offline":
			a.SetOnline(false)
		case "status":
			printlnFn(statusFn())
		case "exit", "quit":
			return
		default:
			printlnFn(fmt.Sprintf("unknown command: %s (try 'help')", cmd))
		}

		if err != nil {
			printlnFn(fmt.Sprintf("error: %v", err))
		}
	}
}
