package tui

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/flowstack/pkg/domain"
)

// Markdown describes a view selection and the events the current state
// accepts. Model attributes are listed in name order.
func Markdown(sel domain.ViewSelection, events []string) string {
	var sb strings.Builder

	switch {
	case sel.IsNull():
		sb.WriteString("_(no view)_\n")
	case sel.Redirect:
		fmt.Fprintf(&sb, "## %s ↪\n", sel.ViewName)
	default:
		fmt.Fprintf(&sb, "## %s\n", sel.ViewName)
	}

	if len(sel.Model) > 0 {
		names := make([]string, 0, len(sel.Model))
		for name := range sel.Model {
			names = append(names, name)
		}
		sort.Strings(names)

		sb.WriteString("\n| attribute | value |\n|---|---|\n")
		for _, name := range names {
			fmt.Fprintf(&sb, "| %s | %s |\n", name, cell(sel.Model[name]))
		}
	}

	if len(events) > 0 {
		sb.WriteString("\n**events:** ")
		for i, ev := range events {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "`%s`", ev)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func cell(v any) string {
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case error:
		s = t.Error()
	default:
		raw, err := json.Marshal(t)
		if err != nil {
			s = fmt.Sprintf("%v", t)
		} else {
			s = string(raw)
		}
	}
	return strings.ReplaceAll(s, "|", "\\|")
}
