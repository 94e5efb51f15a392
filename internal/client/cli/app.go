package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/kwarc/cheatsheets/internal/identity"
	"github.com/kwarc/cheatsheets/internal/server/config"
)

// Exit codes.
const (
	ExitOK         = 0
	ExitError      = 1
	ExitUsage      = 2
	ExitIncomplete = 3
)

// isTerminal is a test seam for term.IsTerminal on the output stream.
var isTerminal = func(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

type App struct {
	config     *config.Config
	stdout     io.Writer
	stderr     io.Writer
	httpClient *http.Client
	now        func() time.Time
}

func NewApp(c *config.Config, stdout, stderr io.Writer) *App {
	return &App{
		config:     c,
		stdout:     stdout,
		stderr:     stderr,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		now:        time.Now,
	}
}

func (a *App) usage() {
	fmt.Fprintln(a.stderr, "usage: sheetctl [-c config.json] [-env .env] <command> [flags]")
	fmt.Fprintln(a.stderr, "")
	fmt.Fprintln(a.stderr, "commands:")
	fmt.Fprintln(a.stderr, "  verify   extract and reconcile the identity of a sheet")
	fmt.Fprintln(a.stderr, "  issue    compose a personalized sheet")
	fmt.Fprintln(a.stderr, "  token    mint a bearer token")
	fmt.Fprintln(a.stderr, "  upload   submit a sheet to a server")
}

// Run executes one command and returns the process exit code.
func (a *App) Run(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("sheetctl", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	fs.Usage = a.usage
	// consumed by the config loader
	fs.String("c", "", "path to JSON config file")
	fs.String("config", "", "path to JSON config file")
	fs.String("env", "", "path to .env file")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}

	rest := fs.Args()
	if len(rest) == 0 {
		a.usage()
		return ExitUsage
	}

	var err error
	switch rest[0] {
	case "verify":
		return a.verify(ctx, rest[1:])
	case "issue":
		err = a.issue(ctx, rest[1:])
	case "token":
		err = a.token(rest[1:])
	case "upload":
		return a.upload(ctx, rest[1:])
	case "help", "-h", "--help":
		a.usage()
		return ExitOK
	default:
		fmt.Fprintln(a.stderr, "Unknown command:", rest[0])
		a.usage()
		return ExitUsage
	}
	return a.exitCode(err)
}

var errUsage = errors.New("usage")

func (a *App) exitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, errUsage), errors.Is(err, flag.ErrHelp):
		return ExitUsage
	default:
		fmt.Fprintln(a.stderr, "error:", err)
		return ExitError
	}
}

// signer returns nil without a configured QR secret.
func (a *App) signer() (*identity.Signer, error) {
	if a.config.QRSecret == "" {
		return nil, nil
	}
	return identity.NewSigner(a.config.QRSecret)
}

func (a *App) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}
