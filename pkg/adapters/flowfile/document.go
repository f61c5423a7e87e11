package flowfile

// FlowDocument is the on-disk shape of one flow definition.
// It uses "mapstructure" tags so that YAML and JSON sources decode the same way.
type FlowDocument struct {
	ID          string          `json:"id" mapstructure:"id"`
	Start       string          `json:"start,omitempty" mapstructure:"start"`
	Description string          `json:"description,omitempty" mapstructure:"description"`
	OnFault     []FaultDocument `json:"on_fault,omitempty" mapstructure:"on_fault"`
	States      []StateDocument `json:"states" mapstructure:"states"`
}

// FaultDocument routes a fault to a state. Exactly one of Code or Any is set.
type FaultDocument struct {
	Code string `json:"code,omitempty" mapstructure:"code"`
	Any  bool   `json:"any,omitempty" mapstructure:"any"`
	To   string `json:"to" mapstructure:"to"`
}

// StateDocument describes one state. Type may be omitted: it is inferred
// from the payload (flow => subflow, actions/expression => action, else view).
type StateDocument struct {
	ID   string `json:"id" mapstructure:"id"`
	Type string `json:"type,omitempty" mapstructure:"type"`

	// View and End
	View     string `json:"view,omitempty" mapstructure:"view"`
	Redirect bool   `json:"redirect,omitempty" mapstructure:"redirect"`

	// View only
	Setup        string `json:"setup,omitempty" mapstructure:"setup"`
	OnSetupError string `json:"on_setup_error,omitempty" mapstructure:"on_setup_error"`

	// Action and Decision
	Actions    []string `json:"actions,omitempty" mapstructure:"actions"`
	Expression string   `json:"expression,omitempty" mapstructure:"expression"`

	// Subflow
	Flow     string   `json:"flow,omitempty" mapstructure:"flow"`
	Input    []string `json:"input,omitempty" mapstructure:"input"`
	Output   []string `json:"output,omitempty" mapstructure:"output"`
	NullFill bool     `json:"null_fill,omitempty" mapstructure:"null_fill"`

	Transitions []TransitionDocument `json:"transitions,omitempty" mapstructure:"transitions"`
	// To is sugar for a trailing wildcard transition.
	To string `json:"to,omitempty" mapstructure:"to"`
}

// TransitionDocument describes one transition. An empty On with no If matches any event.
type TransitionDocument struct {
	On   string `json:"on,omitempty" mapstructure:"on"`
	If   string `json:"if,omitempty" mapstructure:"if"`
	When string `json:"when,omitempty" mapstructure:"when"`

	To      string `json:"to,omitempty" mapstructure:"to"`
	ToState string `json:"to_state,omitempty" mapstructure:"to_state"`
	JumpTo  string `json:"jump_to,omitempty" mapstructure:"jump_to"`
	ToExpr  string `json:"to_expr,omitempty" mapstructure:"to_expr"`
}

func (t TransitionDocument) target() string {
	switch {
	case t.To != "":
		return t.To
	case t.ToState != "":
		return t.ToState
	default:
		return t.JumpTo
	}
}
