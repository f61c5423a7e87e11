package tui

import (
	"errors"
	"testing"

	"github.com/aretw0/flowstack/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestMarkdown(t *testing.T) {
	tests := []struct {
		name   string
		sel    domain.ViewSelection
		events []string
		want   string
	}{
		{
			name: "null selection",
			sel:  domain.NullSelection,
			want: "_(no view)_\n",
		},
		{
			name:   "view with model and events",
			sel:    domain.ViewSelection{ViewName: "cardView", Model: map[string]any{"total": 120, "note": "a|b"}},
			events: []string{"pay", "cancel"},
			want: "## cardView\n" +
				"\n| attribute | value |\n|---|---|\n" +
				"| note | a\\|b |\n" +
				"| total | 120 |\n" +
				"\n**events:** `pay`, `cancel`\n",
		},
		{
			name: "redirect and error values",
			sel:  domain.ViewSelection{ViewName: "oops", Redirect: true, Model: map[string]any{"flowFault": errors.New("declined")}},
			want: "## oops ↪\n" +
				"\n| attribute | value |\n|---|---|\n" +
				"| flowFault | declined |\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Markdown(tt.sel, tt.events))
		})
	}
}
