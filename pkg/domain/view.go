package domain

// ViewSelection is the rendering instruction returned when an execution
// pauses or terminates. The zero value is the null selection.
type ViewSelection struct {
	ViewName string         `json:"view,omitempty"`
	Model    map[string]any `json:"model,omitempty"`
	// Redirect asks the transport to issue a bookmarkable request before rendering.
	Redirect bool `json:"redirect,omitempty"`
}

// NullSelection means "no rendering, control returns silently".
var NullSelection = ViewSelection{}

// NewViewSelection snapshots model for the named view.
func NewViewSelection(viewName string, model *Scope, redirect bool) ViewSelection {
	return ViewSelection{ViewName: viewName, Model: model.Map(), Redirect: redirect}
}

// IsNull reports whether no view was selected.
func (v ViewSelection) IsNull() bool {
	return v.ViewName == "" && !v.Redirect
}
