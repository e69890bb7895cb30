package agent

import (
	"context"
	"os"

	t2perrors "github.com/bengabay11/ticket2pr/internal/errors"
	"github.com/bengabay11/ticket2pr/internal/shell"
)

// CheckAuth verifies the claude CLI can authenticate. An exported
// ANTHROPIC_API_KEY is accepted without asking the CLI.
func CheckAuth(ctx context.Context, runner shell.Runner, claudePath string) error {
	if os.Getenv("ANTHROPIC_API_KEY") != "" {
		return nil
	}
	if claudePath == "" {
		claudePath = "claude"
	}
	res := runner.Run(ctx, "", claudePath, "auth", "status")
	if res.Code == shell.NotFoundCode {
		return t2perrors.ErrExecutableNotFound(claudePath)
	}
	if err := shell.Check(res, claudePath, "auth", "status"); err != nil {
		return t2perrors.ErrAgentNotAuthenticated(err)
	}
	return nil
}
