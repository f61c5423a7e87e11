/*
Package ports defines the driven ports (interfaces) of the flow engine.

These interfaces decouple the dispatch core from external implementations,
allowing executions to be persisted in various storage backends and flows to
be loaded from various sources.

# Key Interfaces

  - FlowRegistry: Looks up resolved flow definitions by id.
  - FlowLoader: Produces flow definitions (e.g., from YAML files).
  - ActionDispatcher: Executes named units of work for Action and Decision states.
  - ExecutionStore: Persists execution snapshots between external events.
  - DistributedLocker: Provides distributed locking for concurrent execution access.
  - Executor: The start/signal facade consumed by transports.
*/
package ports
