package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/flowstack/pkg/domain"
)

// Overlay contains execution data to visualize on the graph.
type Overlay struct {
	VisitedStates []string
	CurrentState  string
}

// GenerateMermaid produces a Mermaid flowchart of one flow definition.
// It applies semantic styling:
// - Start: ((Circle))
// - View: [/Parallelogram/] (waits for input)
// - Decision: {Rhombus}
// - Subflow: [[Subroutine]] labelled with the child flow
// - End: (((Double circle)))
// - Action: [Rectangle]
// Dynamic targets are drawn as {{Hexagon}} nodes holding the expression.
// It also applies overlay styles (Visited/Current) if provided.
func GenerateMermaid(flow *domain.FlowDefinition, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	start := flow.StartStateID
	if start == "" && len(flow.States) > 0 {
		start = flow.States[0].ID
	}

	for _, s := range flow.States {
		safeID := sanitizeMermaidID(s.ID)
		sb.WriteString(fmt.Sprintf("    %s\n", shape(s, s.ID == start)))

		for i, t := range s.Transitions {
			label := edgeLabel(t)
			target := sanitizeMermaidID(t.To)
			arrow := "-->"
			if t.To == "" {
				// Dynamic target: one hexagon per transition.
				target = fmt.Sprintf("%s_dyn%d", safeID, i)
				sb.WriteString(fmt.Sprintf("    %s{{\"%s\"}}\n", target, escape("${"+t.ToExpr+"}")))
				arrow = "-.->"
			}
			if label != "" {
				if arrow == "-->" {
					arrow = fmt.Sprintf("-- \"%s\" -->", label)
				} else {
					arrow = fmt.Sprintf("-. \"%s\" .->", label)
				}
			}
			sb.WriteString(fmt.Sprintf("    %s %s %s\n", safeID, arrow, target))
		}

		if s.Kind == domain.KindView && s.View != nil && s.View.SetupErrorTarget != "" {
			sb.WriteString(fmt.Sprintf("    %s -. \"setup failed\" .-> %s\n", safeID, sanitizeMermaidID(s.View.SetupErrorTarget)))
		}
	}

	// Fault handlers apply to every state of the flow.
	for i, h := range flow.FaultHandlers {
		faultID := fmt.Sprintf("fault%d", i)
		sb.WriteString(fmt.Sprintf("    %s>\"⚡ %s\"]\n", faultID, escape(h.Description)))
		sb.WriteString(fmt.Sprintf("    %s -.-> %s\n", faultID, sanitizeMermaidID(h.Target)))
	}

	// Apply Overlay Styles
	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, id := range overlay.VisitedStates {
			safeID := sanitizeMermaidID(id)
			if !visitedSet[safeID] && safeID != "" {
				visitedSet[safeID] = true
				sb.WriteString(fmt.Sprintf("    class %s visited;\n", safeID))
			}
		}

		if overlay.CurrentState != "" {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeMermaidID(overlay.CurrentState)))
		}
	}

	return sb.String()
}

func shape(s *domain.State, isStart bool) string {
	safeID := sanitizeMermaidID(s.ID)
	label := escape(s.ID)

	switch s.Kind {
	case domain.KindEnd:
		return fmt.Sprintf("%s(((\"%s\")))", safeID, label)
	case domain.KindSubflow:
		if s.Subflow != nil {
			label += " <br/> ↳ " + escape(s.Subflow.FlowID)
		}
		return fmt.Sprintf("%s[[\"%s\"]]", safeID, label)
	}

	if isStart {
		return fmt.Sprintf("%s((\"%s\"))", safeID, label)
	}

	switch s.Kind {
	case domain.KindView:
		if s.View != nil && s.View.ViewName != "" {
			label += " <br/> " + escape(s.View.ViewName)
		}
		return fmt.Sprintf("%s[/\"%s\"/]", safeID, label)
	case domain.KindDecision:
		return fmt.Sprintf("%s{\"%s\"}", safeID, label)
	default:
		return fmt.Sprintf("%s[\"%s\"]", safeID, label)
	}
}

func edgeLabel(t *domain.Transition) string {
	label := ""
	if t.On != nil && t.On.String() != domain.WildcardID {
		label = t.On.String()
	}
	if t.When != nil {
		if label != "" {
			label += " "
		}
		label += "[" + t.When.String() + "]"
	}
	return escape(label)
}

// escape replaces double quotes, which terminate Mermaid labels.
func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
