package cli

import (
	"fmt"

	"github.com/bengabay11/ticket2pr/internal/console"
	t2perrors "github.com/bengabay11/ticket2pr/internal/errors"
)

// PrintError renders err as a panel. Interruptions get a warning panel;
// in verbose mode the code and cause follow.
func PrintError(con *console.Console, err error) {
	e := t2perrors.AsError(err)
	if e != nil && e.Code == t2perrors.CodeInterrupted {
		con.Warning(e.Title(), e.UserMessage())
		return
	}
	con.Error(err)
	if verbose && e != nil {
		con.Info(fmt.Sprintf("Code: %s", e.Code))
		if e.Cause != nil {
			con.Info(fmt.Sprintf("Cause: %v", e.Cause))
		}
	}
}
