package agent

import (
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const renderWidth = 160

// toolArgKeys are the input fields shown for each tool, in preference order.
var toolArgKeys = []string{"file_path", "path", "pattern", "command", "description"}

// Render projects an event to a single printable line. It has no side
// effects; an empty string means the event has nothing worth showing.
func Render(ev Event) string {
	switch ev.Kind {
	case KindSystem:
		if ev.Model != "" {
			return fmt.Sprintf("session %s started (%s)", shortID(ev.SessionID), ev.Model)
		}
		return ""
	case KindText:
		return strings.TrimSpace(ev.Text)
	case KindThinking:
		return "thinking: " + firstLine(ev.Text)
	case KindToolUse:
		if arg := toolArg(ev.ToolInput); arg != "" {
			return fmt.Sprintf("-> %s(%s)", ev.ToolName, arg)
		}
		return fmt.Sprintf("-> %s", ev.ToolName)
	case KindToolResult:
		if ev.IsError {
			return "<- error: " + firstLine(ev.Text)
		}
		return ""
	case KindResult:
		if ev.IsError {
			return "agent failed: " + firstLine(ev.Text)
		}
		return fmt.Sprintf("agent finished in %s (%d turns, $%.4f)", ev.Duration.Round(100*time.Millisecond), ev.NumTurns, ev.CostUSD)
	}
	return ""
}

func toolArg(input string) string {
	if input == "" {
		return ""
	}
	for _, key := range toolArgKeys {
		if v := gjson.Get(input, key); v.Exists() && v.String() != "" {
			return firstLine(v.String())
		}
	}
	return ""
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i] + " ..."
	}
	return truncate(s, renderWidth)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
