/*
Package domain contains the core model of the flow engine: flow definitions,
states, transitions, attribute scopes and the execution stack of nested flow
sessions.

The package has no I/O and no dependency on the dispatch loop, which lives in
internal/runtime. Persistence, transports and expression languages plug in
through pkg/ports and the Evaluator interface.

# Key Entities

  - FlowDefinition: an immutable graph of States, resolved eagerly by Resolve.
  - State: a tagged union (View, Action, Decision, Subflow, End).
  - Transition: matching criteria, optional precondition and a target.
  - FlowSession: one activation of a flow with its own flow scope.
  - Stack: the ordered sessions of one execution, with listener notification.
  - Snapshot: the flat serializable form of a Stack.
  - RequestContext: the per-event context passed explicitly through dispatch.
*/
package domain
