package observability

import (
	"log/slog"

	"github.com/aretw0/flowstack/pkg/domain"
)

// LogListener writes lifecycle notifications as structured log records.
// Starts and ends are logged at Info, everything else at Debug.
type LogListener struct {
	logger *slog.Logger
}

var _ domain.Listener = (*LogListener)(nil)

// NewLogListener creates a listener writing to logger.
func NewLogListener(logger *slog.Logger) *LogListener {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &LogListener{logger: logger}
}

func (l *LogListener) attrs(rc *domain.RequestContext) []any {
	st := rc.Stack()
	return []any{"execution", st.ID, "flow", st.QualifiedActiveFlowID()}
}

func (l *LogListener) Started(rc *domain.RequestContext, s *domain.FlowSession) {
	l.logger.InfoContext(rc.Context(), "flow started", append(l.attrs(rc), "root", s.FlowID())...)
}

func (l *LogListener) EventSignaled(rc *domain.RequestContext, ev domain.Event) {
	l.logger.DebugContext(rc.Context(), "event signaled", append(l.attrs(rc), "event", ev.ID)...)
}

func (l *LogListener) StateTransitioned(rc *domain.RequestContext, previous, next *domain.State) {
	from := ""
	if previous != nil {
		from = previous.ID
	}
	to := ""
	if next != nil {
		to = next.ID
	}
	l.logger.DebugContext(rc.Context(), "state entered", append(l.attrs(rc), "from", from, "to", to)...)
}

func (l *LogListener) SubflowSpawned(rc *domain.RequestContext, s *domain.FlowSession) {
	l.logger.DebugContext(rc.Context(), "subflow spawned", append(l.attrs(rc), "subflow", s.FlowID())...)
}

func (l *LogListener) SubflowEnded(rc *domain.RequestContext, s *domain.FlowSession) {
	l.logger.DebugContext(rc.Context(), "subflow ended",
		append(l.attrs(rc), "subflow", s.FlowID(), "end_state", s.StateID())...)
}

func (l *LogListener) Paused(rc *domain.RequestContext, sel domain.ViewSelection) {
	l.logger.DebugContext(rc.Context(), "execution paused",
		append(l.attrs(rc), "state", rc.Stack().CurrentStateID(), "view", sel.ViewName)...)
}

func (l *LogListener) Resumed(rc *domain.RequestContext, s *domain.FlowSession) {
	l.logger.DebugContext(rc.Context(), "execution resumed", append(l.attrs(rc), "state", s.StateID())...)
}

func (l *LogListener) Ended(rc *domain.RequestContext, s *domain.FlowSession) {
	l.logger.InfoContext(rc.Context(), "flow ended",
		"execution", rc.Stack().ID, "flow", s.FlowID(), "end_state", s.StateID())
}
