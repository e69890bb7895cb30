package agent

import (
	"errors"
	"time"

	"github.com/tidwall/gjson"
)

// Kind identifies a streamed event.
type Kind string

const (
	KindSystem     Kind = "system"
	KindText       Kind = "text"
	KindThinking   Kind = "thinking"
	KindToolUse    Kind = "tool_use"
	KindToolResult Kind = "tool_result"
	KindResult     Kind = "result"
)

// Event is one unit of agent progress.
type Event struct {
	Kind      Kind
	SessionID string
	// Text holds assistant text, thinking, tool output, or the final result.
	Text string
	// Subtype is the raw subtype of system and result events.
	Subtype   string
	Model     string
	ToolName  string
	ToolInput string // raw JSON
	IsError   bool
	CostUSD   float64
	Duration  time.Duration
	NumTurns  int
}

var errInvalidEvent = errors.New("invalid stream-json line")

// ParseLine decodes one stream-json line. Assistant and user messages can
// carry several content blocks, so one line may yield several events.
// Unknown line types yield no events.
func ParseLine(line []byte) ([]Event, error) {
	if !gjson.ValidBytes(line) {
		return nil, errInvalidEvent
	}
	root := gjson.ParseBytes(line)
	session := root.Get("session_id").String()

	switch root.Get("type").String() {
	case "system":
		return []Event{{
			Kind:      KindSystem,
			SessionID: session,
			Subtype:   root.Get("subtype").String(),
			Model:     root.Get("model").String(),
		}}, nil

	case "assistant":
		var events []Event
		root.Get("message.content").ForEach(func(_, block gjson.Result) bool {
			ev := Event{SessionID: session}
			switch block.Get("type").String() {
			case "text":
				ev.Kind, ev.Text = KindText, block.Get("text").String()
			case "thinking":
				ev.Kind, ev.Text = KindThinking, block.Get("thinking").String()
			case "tool_use":
				ev.Kind = KindToolUse
				ev.ToolName = block.Get("name").String()
				ev.ToolInput = block.Get("input").Raw
			default:
				return true
			}
			events = append(events, ev)
			return true
		})
		return events, nil

	case "user":
		var events []Event
		root.Get("message.content").ForEach(func(_, block gjson.Result) bool {
			if block.Get("type").String() != "tool_result" {
				return true
			}
			events = append(events, Event{
				Kind:      KindToolResult,
				SessionID: session,
				Text:      toolResultText(block.Get("content")),
				IsError:   block.Get("is_error").Bool(),
			})
			return true
		})
		return events, nil

	case "result":
		return []Event{{
			Kind:      KindResult,
			SessionID: session,
			Subtype:   root.Get("subtype").String(),
			Text:      root.Get("result").String(),
			IsError:   root.Get("is_error").Bool(),
			CostUSD:   root.Get("total_cost_usd").Float(),
			Duration:  time.Duration(root.Get("duration_ms").Int()) * time.Millisecond,
			NumTurns:  int(root.Get("num_turns").Int()),
		}}, nil
	}
	return nil, nil
}

// toolResultText flattens tool_result content, which is either a string
// or a list of text blocks.
func toolResultText(content gjson.Result) string {
	if !content.IsArray() {
		return content.String()
	}
	var text string
	content.ForEach(func(_, block gjson.Result) bool {
		if t := block.Get("text"); t.Exists() {
			if text != "" {
				text += "\n"
			}
			text += t.String()
		}
		return true
	})
	return text
}
