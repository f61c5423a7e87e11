package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCriteria(t *testing.T) {
	ev := mapEvaluator{"yes": true, "no": false, "str": "false", "boom": errors.New("boom")}

	tests := []struct {
		name  string
		c     Criteria
		event string
		want  bool
		str   string
	}{
		{"wildcard", Wildcard(), "anything", true, "*"},
		{"event match", EventIs("submit"), "submit", true, "submit"},
		{"event mismatch", EventIs("submit"), "cancel", false, "submit"},
		{"star is wildcard", EventIs("*"), "x", true, "*"},
		{"not", Not(EventIs("submit")), "cancel", true, "!submit"},
		{"expression true", Expr("yes"), "", true, "${yes}"},
		{"expression string false", Expr("str"), "", false, "${str}"},
		{"chain all true", Chain(EventIs("go"), Expr("yes")), "go", true, "go && ${yes}"},
		{"chain short-circuits", Chain(EventIs("go"), Expr("boom")), "stop", false, "go && ${boom}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.c.Test(newRC(tt.event, ev))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.str, tt.c.String())
		})
	}
}

func TestChain_PropagatesError(t *testing.T) {
	ev := mapEvaluator{"boom": errors.New("boom")}
	ok, err := Chain(Wildcard(), Expr("boom")).Test(newRC("x", ev))
	assert.False(t, ok)
	assert.EqualError(t, err, "boom")
}

func TestChain_Flattens(t *testing.T) {
	c := Chain(Chain(EventIs("a"), EventIs("a")), nil, Wildcard())
	assert.Len(t, c.(chain), 3)
	assert.Equal(t, EventIs("a"), Chain(EventIs("a")))
}

func TestExpr_WithoutEvaluator(t *testing.T) {
	_, err := Expr("x").Test(newRC("", nil))
	var missing *EvaluatorMissingError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "x", missing.Expression)
}

func TestTruthy(t *testing.T) {
	assert.False(t, Truthy(nil))
	assert.False(t, Truthy(""))
	assert.False(t, Truthy(" No "))
	assert.False(t, Truthy(0))
	assert.False(t, Truthy(int64(0)))
	assert.False(t, Truthy(0.0))
	assert.True(t, Truthy("yes"))
	assert.True(t, Truthy(2))
	assert.True(t, Truthy(map[string]any{}))
}
