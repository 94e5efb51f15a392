package cli

import (
	"fmt"
	"time"

	"github.com/kwarc/cheatsheets/internal/server/auth"
)

func (a *App) token(args []string) error {
	fs := a.newFlagSet("token")
	var id auth.Identity
	fs.StringVar(&id.UserID, "user", "", "user id")
	fs.StringVar(&id.Name, "name", "", "display name")
	fs.StringVar(&id.Email, "email", "", "email")
	fs.BoolVar(&id.Instructor, "instructor", false, "grant instructor rights")
	ttl := fs.Duration("ttl", a.config.AccessTokenValidityDuration, "token validity")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if id.UserID == "" {
		return fmt.Errorf("-user is required")
	}
	if *ttl <= 0 {
		*ttl = time.Hour
	}

	tok, err := auth.GenerateToken(id, []byte(a.config.JWTSecret), *ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, tok)
	return nil
}
