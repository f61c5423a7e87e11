package flowfile

import (
	"fmt"
	"strings"

	"github.com/aretw0/flowstack/pkg/domain"
	"github.com/aretw0/flowstack/pkg/dsl"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Parse decodes one YAML (or JSON) document into a resolved flow definition.
func Parse(data []byte) (*domain.FlowDefinition, error) {
	doc, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return Compile(doc)
}

// Decode reads data into a generic document and then into a FlowDocument.
// Unknown keys are rejected.
func Decode(data []byte) (*FlowDocument, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse flow document: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("empty flow document")
	}

	var doc FlowDocument
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &doc,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode flow document: %w", err)
	}
	return &doc, nil
}

// Compile turns a document into a resolved definition using the dsl builder.
func Compile(doc *FlowDocument) (*domain.FlowDefinition, error) {
	if doc.ID == "" {
		return nil, fmt.Errorf("%w: flow document without id", domain.ErrInvalidDefinition)
	}

	b := dsl.Flow(doc.ID)
	if doc.Start != "" {
		b.Start(doc.Start)
	}

	for i, f := range doc.OnFault {
		switch {
		case f.Code != "" && f.Any:
			return nil, fmt.Errorf("%w '%s': fault handler %d sets both code and any", domain.ErrInvalidDefinition, doc.ID, i)
		case f.Code != "":
			b.OnFaultCode(f.Code, f.To)
		case f.Any:
			b.OnAnyFault(f.To)
		default:
			return nil, fmt.Errorf("%w '%s': fault handler %d needs code or any", domain.ErrInvalidDefinition, doc.ID, i)
		}
	}

	for _, sd := range doc.States {
		sb, err := addState(b, sd)
		if err != nil {
			return nil, fmt.Errorf("%w '%s': %w", domain.ErrInvalidDefinition, doc.ID, err)
		}
		for _, td := range sd.Transitions {
			addTransition(sb, td)
		}
		if sd.To != "" {
			sb.OnAny(sd.To)
		}
	}

	return b.Build()
}

func inferKind(sd StateDocument) domain.StateKind {
	if sd.Type != "" {
		return domain.StateKind(strings.ToLower(sd.Type))
	}
	switch {
	case sd.Flow != "":
		return domain.KindSubflow
	case len(sd.Actions) > 0 || sd.Expression != "":
		return domain.KindAction
	default:
		return domain.KindView
	}
}

func addState(b *dsl.Builder, sd StateDocument) (*dsl.StateBuilder, error) {
	var sb *dsl.StateBuilder
	kind := inferKind(sd)
	switch kind {
	case domain.KindView:
		sb = b.View(sd.ID, sd.View)
	case domain.KindAction:
		sb = b.Action(sd.ID, sd.Actions...)
	case domain.KindDecision:
		sb = b.Decision(sd.ID, sd.Actions...)
	case domain.KindSubflow:
		sb = b.Subflow(sd.ID, sd.Flow)
	case domain.KindEnd:
		sb = b.End(sd.ID)
	default:
		return nil, fmt.Errorf("state '%s' has unknown type '%s'", sd.ID, sd.Type)
	}

	// Payload keys are applied regardless of kind so that the builder
	// reports keys that do not belong to it.
	if sd.View != "" && kind != domain.KindView {
		sb.View(sd.View)
	}
	if len(sd.Actions) > 0 && kind != domain.KindAction && kind != domain.KindDecision {
		return nil, fmt.Errorf("state '%s': actions on a %s state", sd.ID, kind)
	}
	if sd.Flow != "" && kind != domain.KindSubflow {
		return nil, fmt.Errorf("state '%s': flow on a %s state", sd.ID, kind)
	}
	if sd.Setup != "" {
		sb.Setup(sd.Setup, sd.OnSetupError)
	}
	if sd.Expression != "" {
		sb.Expression(sd.Expression)
	}
	if len(sd.Input) > 0 {
		sb.Input(sd.Input...)
	}
	if len(sd.Output) > 0 {
		sb.Output(sd.Output...)
	}
	if sd.NullFill {
		sb.NullFill()
	}
	if sd.Redirect {
		sb.Redirect()
	}
	return sb, nil
}

func addTransition(sb *dsl.StateBuilder, td TransitionDocument) {
	var c domain.Criteria
	if td.On != "" {
		c = domain.EventIs(td.On)
	}
	if td.If != "" {
		c = domain.Chain(c, domain.Expr(td.If))
	}
	if c == nil {
		c = domain.Wildcard()
	}

	if td.ToExpr != "" {
		sb.MatchDynamic(c, td.ToExpr)
	} else {
		sb.Match(c, td.target())
	}
	if td.When != "" {
		sb.When(td.When)
	}
}
