package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/kwarc/cheatsheets/internal/compose"
	"github.com/kwarc/cheatsheets/internal/logging"
	"github.com/kwarc/cheatsheets/internal/qr"
	"github.com/kwarc/cheatsheets/internal/server/auth"
	"github.com/kwarc/cheatsheets/internal/server/services"
)

func (a *App) issue(ctx context.Context, args []string) error {
	fs := a.newFlagSet("issue")
	var req services.IssueRequest
	var id auth.Identity
	fs.StringVar(&req.CourseName, "course-name", "", "course name printed on the sheet")
	fs.StringVar(&req.CourseID, "course-id", "", "course id")
	fs.StringVar(&req.InstanceID, "instance-id", "", "course instance (semester) id")
	fs.StringVar(&req.UniversityID, "university-id", "", "university id")
	fs.StringVar(&id.UserID, "student-id", "", "student id")
	fs.StringVar(&id.Name, "student-name", "", "student name")
	fs.StringVar(&id.Email, "student-email", "", "student email, carried by -client-payload sheets")
	client := fs.Bool("client-payload", false, "embed the compact unsigned {uid,email,course,nonce,ts} payload")
	out := fs.String("o", "", "output file (default cheatsheet_<course>_<week>.pdf)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if id.UserID == "" {
		return fmt.Errorf("-student-id is required")
	}

	signer, err := a.signer()
	if err != nil {
		return err
	}
	svc := services.NewIssueService(compose.New(qr.NewEncoder(), logging.Nop{}), signer,
		a.config.SemesterStartTime(), a.now, logging.Nop{}).WithClientPayload(*client)

	sheet, err := svc.Issue(ctx, id, req)
	if err != nil {
		return err
	}

	path := *out
	if path == "" {
		path = sheet.FileName
	}
	if err := os.WriteFile(path, sheet.PDF, 0o644); err != nil {
		return err
	}

	fmt.Fprintf(a.stderr, "wrote %s (%s, week %s)\n", path, sheet.Sheet.GenerationID, sheet.Sheet.WeekID)
	if !sheet.Signed && !sheet.ClientPayload {
		fmt.Fprintln(a.stderr, "warning: QR secret is not configured, the sheet has no QR code")
	}
	return nil
}
