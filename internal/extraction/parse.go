package extraction

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/ethanbaker/minutes/internal/stores/meeting"
)

// stripFences removes a surrounding markdown code fence such as ```json
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = ""
	}
	s = strings.TrimSpace(s)

	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}

// unwrapList accepts either a bare JSON array or an object holding the array
// under key
func unwrapList(raw string, key string) ([]json.RawMessage, bool) {
	raw = stripFences(raw)
	if raw == "" {
		return nil, false
	}

	var list []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &list); err == nil {
		return list, true
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &wrapped); err != nil {
		return nil, false
	}
	inner, ok := wrapped[key]
	if !ok {
		return nil, false
	}
	if err := json.Unmarshal(inner, &list); err != nil {
		return nil, false
	}
	return list, true
}

// parseDecisions reads a JSON list of decision strings. Non-string entries are
// dropped; anything unparseable yields nil and false
func parseDecisions(raw string) ([]string, bool) {
	list, ok := unwrapList(raw, "decisions")
	if !ok {
		return nil, false
	}

	decisions := make([]string, 0, len(list))
	for _, entry := range list {
		var text string
		if err := json.Unmarshal(entry, &text); err != nil {
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			decisions = append(decisions, text)
		}
	}
	return decisions, true
}

type rawActionItem struct {
	Task    any `json:"task"`
	Owner   any `json:"owner"`
	DueDate any `json:"due_date"`
}

// parseActionItems reads a JSON list of action items. Items without a task are
// dropped, a missing owner becomes Unassigned and bad due dates become nil
func parseActionItems(raw string) ([]ActionItem, bool) {
	list, ok := unwrapList(raw, "action_items")
	if !ok {
		return nil, false
	}

	items := make([]ActionItem, 0, len(list))
	for _, entry := range list {
		var r rawActionItem
		if err := json.Unmarshal(entry, &r); err != nil {
			continue
		}

		task := asString(r.Task)
		if task == "" {
			continue
		}

		owner := asString(r.Owner)
		if owner == "" {
			owner = meeting.Unassigned
		}

		items = append(items, ActionItem{
			Task:    task,
			Owner:   owner,
			DueDate: ParseDueDate(asString(r.DueDate)),
		})
	}
	return items, true
}

func asString(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

// ParseDueDate normalizes a YYYY-MM-DD string to a date. Anything else,
// including "Not set", yields nil
func ParseDueDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	d, err := time.Parse(meeting.DateLayout, s)
	if err != nil {
		return nil
	}
	return &d
}
