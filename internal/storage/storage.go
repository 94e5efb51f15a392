// Package storage keeps accepted cheat sheets, one file per submission slot.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/kwarc/cheatsheets/internal/common"
)

// Store is where accepted documents live.
type Store interface {
	// Replace deletes every stored name of the form prefix + "_" + * + ".pdf"
	// and writes data under name. It reports whether anything was deleted.
	Replace(ctx context.Context, prefix, name string, data []byte) (bool, error)
	// Remove deletes name if present. Names that could leave the storage
	// root are refused with common.ErrorPathEscape before any I/O.
	Remove(ctx context.Context, name string) (bool, error)
	// Open returns the stored document or common.ErrorNotFound.
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// Presigner is implemented by stores that can hand out direct download URLs.
type Presigner interface {
	PresignGet(ctx context.Context, name string) (string, error)
}

// ValidateName accepts plain file names only.
func ValidateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%w: %q", common.ErrorPathEscape, name)
	case strings.ContainsAny(name, `/\`), strings.Contains(name, ".."), strings.ContainsRune(name, 0):
		return fmt.Errorf("%w: %q", common.ErrorPathEscape, name)
	}
	return nil
}

// slotMember reports whether name belongs to the slot with prefix.
func slotMember(prefix, name string) bool {
	return strings.HasPrefix(name, prefix+"_") && strings.HasSuffix(name, ".pdf") && len(name) > len(prefix)+len("_.pdf")
}
