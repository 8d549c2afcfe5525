package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/contentiq/internal/client/models"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Analyze(ctx context.Context, kind models.Kind, args []string) error
	History(ctx context.Context) error
	Show(ctx context.Context, id string) error
	Clear(ctx context.Context) error
	Sync(ctx context.Context) error
	Status(ctx context.Context) error
}

const (
	helpLoggedOut = "Available commands: login, youtube <url>, pdf <path>, resume <path>, image <prompt>, refine <path> [instructions], (l)ist|history, show <id>, clear, status, exit"
	helpLoggedIn  = "Available commands: youtube <url>, pdf <path>, resume <path>, image <prompt>, refine <path> [instructions], (l)ist|history, show <id>, clear, sync, status, logout, exit"
)

// analysisCommands maps REPL verbs to the kind they run.
var analysisCommands = map[string]models.Kind{
	"youtube": models.KindYouTube,
	"pdf":     models.KindPDF,
	"resume":  models.KindResume,
	"image":   models.KindImageGen,
	"refine":  models.KindPDFRefine,
}

// runREPL starts a simple read–eval–print loop for the ContentIQ CLI.
//
// It reads a line from in, parses the first token as the command, and
// dispatches to methods on 'a'. The loop exits on EOF or when the user types
// "exit" or "quit". Command handlers report their own errors; the loop only
// prints what they return so it keeps running after a failed command.
func runREPL(ctx context.Context, a execIface, statusFn func() string, in *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("ciq %s> ", statusFn()))
		line, err := in.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn(helpLoggedIn)
			} else {
				printlnFn(helpLoggedOut)
			}

		case "login":
			cmdErr = a.Login(ctx)

		case "logout":
			cmdErr = a.Logout(ctx)

		case "youtube", "pdf", "resume", "image", "refine":
			if len(args) == 0 {
				printlnFn(fmt.Sprintf("Usage: %s <%s>", cmd, usageArg(cmd)))
				continue
			}
			cmdErr = a.Analyze(ctx, analysisCommands[cmd], args)

		case "l", "list", "history":
			cmdErr = a.History(ctx)

		case "show":
			if len(args) == 0 {
				printlnFn("Usage: show <id>")
				continue
			}
			cmdErr = a.Show(ctx, args[0])

		case "clear":
			cmdErr = a.Clear(ctx)

		case "sync":
			cmdErr = a.Sync(ctx)

		case "status":
			cmdErr = a.Status(ctx)

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

func usageArg(cmd string) string {
	switch cmd {
	case "youtube":
		return "url"
	case "image":
		return "prompt"
	default:
		return "path"
	}
}
