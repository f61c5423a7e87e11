// Package registry holds the flow definitions and named actions an engine runs.
package registry
