/*
Package flowstack executes nested, resumable flows: graphs of view, action,
decision, subflow and end states that pause on views and resume on external
events.

An execution is a stack of flow sessions. Entering a subflow state pushes a
child session whose flow scope is seeded through an input mapper; ending the
child pops it, maps its output back and dispatches the id of its end state to
the parent. Between events the whole stack is a flat domain.Snapshot kept in
a ports.ExecutionStore (memory, file, Redis, bbolt or SQLite).

# Usage

Flows are built with pkg/dsl or loaded from YAML/JSON files with
pkg/adapters/flowfile, then handed to an Executor:

	booking := dsl.New("booking")
	booking.View("enterDetails", "detailsForm").On("submit", "done")
	booking.End("done").View("confirmation")

	exec, err := flowstack.New(ctx, flowstack.WithFlows(booking.MustBuild()))
	if err != nil {
		log.Fatal(err)
	}

	res, err := exec.Start(ctx, "booking", map[string]any{"total": 120})
	// render res.Selection.ViewName with res.Selection.Model ...
	res, err = exec.Signal(ctx, res.ExecutionID, "submit", nil)

Every call returns a Result with the view selection, the stored snapshot and
a SnapshotDiff describing what changed. Executions are locked per id, so
concurrent signals to the same execution are applied one at a time.

# Errors

Unknown flows and executions wrap domain.ErrNoSuchFlow and
domain.ErrExecutionNotFound. An event no transition accepts returns a
*domain.NoMatchingTransitionError and leaves the stored execution untouched.
When the unmatched event was raised by the engine itself, such as a subflow
end id the parent cannot route, the error has Cascaded set.
Failures of actions and expressions are routed to the flow's fault handlers;
unhandled ones are returned as *domain.StateFaultError together with the
persisted, paused execution.
*/
package flowstack
