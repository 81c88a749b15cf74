// Package delivery hands the share payload to the platform. The clipboard
// is the only delivery channel, mirroring the copy-link contract.
package delivery

import (
	"fmt"

	"github.com/atotto/clipboard"
)

// Clipboard writes the payload to the system clipboard.
type Clipboard struct{}

func (Clipboard) Deliver(payload string) error {
	if err := clipboard.WriteAll(payload); err != nil {
		return fmt.Errorf("failed to copy payload: %w", err)
	}
	return nil
}

// Discard drops payloads. Used where no clipboard exists (headless runs).
type Discard struct{}

func (Discard) Deliver(string) error {
	return nil
}
