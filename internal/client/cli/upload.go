package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kwarc/cheatsheets/internal/netx"
)

func (a *App) upload(ctx context.Context, args []string) int {
	fs := a.newFlagSet("upload")
	server := fs.String("server", "http://127.0.0.1:8080", "API base URL")
	token := fs.String("token", os.Getenv("SHEETCTL_TOKEN"), "bearer token (or SHEETCTL_TOKEN)")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(a.stderr, "usage: sheetctl upload [-server url] [-token t] <file.pdf>")
		return ExitUsage
	}

	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return a.exitCode(err)
	}

	resp, err := netx.UploadSheet(ctx, a.httpClient, *server, *token, filepath.Base(fs.Arg(0)), data)
	if err != nil {
		return a.exitCode(err)
	}

	fmt.Fprintf(a.stderr, "HTTP %d\n", resp.Status)
	fmt.Fprintln(a.stdout, string(resp.Body))
	if !resp.OK() {
		return ExitError
	}
	return ExitOK
}
