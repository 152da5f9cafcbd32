// Package clipboard copies rendered documents and file content to the system clipboard.
package clipboard

import (
	"errors"
	"fmt"

	"github.com/atotto/clipboard"
)

const errorCopyFailedFmt = "copy to clipboard: %w"

// ErrUnsupported reports that no clipboard utility is available on this system.
var ErrUnsupported = errors.New("clipboard is not supported on this system")

// Copier copies textual data to the system clipboard.
type Copier interface {
	Copy(text string) error
}

// Service implements Copier using github.com/atotto/clipboard.
type Service struct {
	unsupported bool
	writeAll    func(string) error
}

// NewService constructs a Service backed by the system clipboard.
func NewService() *Service {
	return &Service{unsupported: clipboard.Unsupported, writeAll: clipboard.WriteAll}
}

// Copy writes text to the system clipboard.
func (service *Service) Copy(text string) error {
	if service.unsupported {
		return fmt.Errorf(errorCopyFailedFmt, ErrUnsupported)
	}
	if writeError := service.writeAll(text); writeError != nil {
		return fmt.Errorf(errorCopyFailedFmt, writeError)
	}
	return nil
}

var _ Copier = (*Service)(nil)
