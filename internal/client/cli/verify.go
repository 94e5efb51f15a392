package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/kwarc/cheatsheets/internal/fields"
	"github.com/kwarc/cheatsheets/internal/logging"
	"github.com/kwarc/cheatsheets/internal/qr"
	"github.com/kwarc/cheatsheets/internal/verify"
)

type verifyOutput struct {
	File        string        `json:"file"`
	Checksum    string        `json:"checksum"`
	FileName    string        `json:"fileName,omitempty"`
	Pages       int           `json:"pages"`
	Diagnostics string        `json:"diagnostics"`
	Missing     []string      `json:"missing"`
	Complete    bool          `json:"complete"`
	Fields      fields.Fields `json:"fields"`
}

func (a *App) verify(ctx context.Context, args []string) int {
	fs := a.newFlagSet("verify")
	asJSON := fs.Bool("json", false, "print JSON even on a terminal")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(a.stderr, "usage: sheetctl verify [-json] <file.pdf>")
		return ExitUsage
	}
	path := fs.Arg(0)

	data, err := os.ReadFile(path)
	if err != nil {
		return a.exitCode(err)
	}
	signer, err := a.signer()
	if err != nil {
		return a.exitCode(err)
	}

	extractor := verify.NewExtractor(qr.NewDecoder(signer), verify.Limits{
		MaxBytes: a.config.MaxUploadBytes,
		MaxPages: a.config.MaxPages,
		Timeout:  a.config.ExtractionTimeout,
	}, logging.Nop{})
	r, err := extractor.Extract(ctx, data)
	if err != nil {
		return a.exitCode(err)
	}

	out := verifyOutput{
		File:        filepath.Base(path),
		Checksum:    r.Checksum,
		Pages:       r.Pages,
		Diagnostics: r.Diagnostics,
		Missing:     r.Missing,
		Complete:    r.Complete(),
		Fields:      r.Fields,
	}
	if out.Missing == nil {
		out.Missing = []string{}
	}
	// offline the student id stands in for the uploader
	if r.Complete() {
		out.FileName = r.FileName(r.Fields.StudentID)
	}

	if *asJSON || !isTerminal(a.stdout) {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return a.exitCode(err)
		}
	} else {
		a.printReport(out)
	}

	if !out.Complete {
		return ExitIncomplete
	}
	return ExitOK
}

func (a *App) printReport(out verifyOutput) {
	tw := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	dash := func(s string) string {
		if s == "" {
			return "-"
		}
		return s
	}
	fmt.Fprintf(tw, "File:\t%s\n", out.File)
	fmt.Fprintf(tw, "Pages:\t%d\n", out.Pages)
	fmt.Fprintf(tw, "Checksum:\t%s\n", out.Checksum)
	fmt.Fprintf(tw, "Stored as:\t%s\n", dash(out.FileName))
	fmt.Fprintf(tw, "Diagnostics:\t%s\n", out.Diagnostics)
	fmt.Fprintf(tw, "Missing:\t%s\n", dash(strings.Join(out.Missing, ", ")))
	fmt.Fprintln(tw)
	for _, k := range []string{fields.CourseID, fields.InstanceID, fields.UniversityID, fields.WeekID,
		fields.StudentID, fields.StudentName, fields.DownloadDate} {
		fmt.Fprintf(tw, "%s\t%s\n", k, dash(out.Fields.Get(k)))
	}
	_ = tw.Flush()
}
