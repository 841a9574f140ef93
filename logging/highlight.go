// (c) 2020, Alex Willmer, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package logging

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/ssh/terminal"
)

// Highlight selects whether console-encoded logs get ANSI color, the
// way the teacher's utils/logging package decides per output fd.
type Highlight int

const (
	Plain Highlight = iota
	Colors
)

// ToHighlight chooses a highlighting mode. "auto" highlights only when
// fd is an interactive terminal, matching the teacher's --log-display-highlight
// default.
func ToHighlight(h string, fd uintptr) (Highlight, error) {
	switch strings.ToUpper(h) {
	case "PLAIN":
		return Plain, nil
	case "COLORS":
		return Colors, nil
	case "AUTO":
		if !terminal.IsTerminal(int(fd)) {
			return Plain, nil
		}
		return Colors, nil
	default:
		return Plain, fmt.Errorf("unknown highlight mode: %s", h)
	}
}
