/*
Package dsl provides a Go DSL (Domain Specific Language) for programmatically constructing flow definitions.

It allows developers to define flows using a type-safe, fluent builder pattern
instead of relying on external YAML files. This is particularly useful for unit
testing and for flows that ship with the binary.

Example usage:

	booking := dsl.Flow("booking")

	booking.View("enterDetails", "enterDetailsView").
		On("submit", "confirm")

	booking.Subflow("confirm", "payment").
		Input("total").
		Output("receipt").
		On("paid", "done")

	booking.End("done").
		View("confirmationView")

	flow, err := booking.Build()
	// ... register flow with registry.Flows
*/
package dsl
