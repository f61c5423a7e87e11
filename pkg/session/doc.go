/*
Package session implements execution access control and persistence orchestration.

It serializes concurrent access to stored executions, combining reference-counted
in-process locks with an optional distributed lock so that several replicas can
share one execution store.
*/
package session
