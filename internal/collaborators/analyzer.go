// Package collaborators holds the built-in implementations of the
// pipeline's collaborator contracts. They are deliberately modest:
// template-driven analysis and placeholder image synthesis, enough to
// run the full pipeline without external model endpoints.
package collaborators

import (
	"context"
	"fmt"
	"strings"

	"github.com/refurbd/renovation-planner/internal/pipeline"
)

// TemplateAnalyzer produces an assessment and design plan from the
// project metadata alone. Stands in for the vision model in
// development and tests.
type TemplateAnalyzer struct{}

func NewTemplateAnalyzer() *TemplateAnalyzer {
	return &TemplateAnalyzer{}
}

func (a *TemplateAnalyzer) Analyze(_ context.Context, req pipeline.AnalyzeRequest) (*pipeline.RoomAnalysis, error) {
	if req.CurrentRoomImage == "" {
		return nil, fmt.Errorf("no room image provided")
	}

	style := req.DesiredStyle
	if style == "" {
		style = "contemporary"
	}
	room := strings.ReplaceAll(string(req.RoomType), "_", " ")

	assessment := fmt.Sprintf(
		"The %s offers roughly %.0f sq ft of usable space. Current finishes date the room; layout and natural light are workable as-is.",
		room, req.SquareFootage,
	)

	var plan strings.Builder
	fmt.Fprintf(&plan, "Redesign the %s in a %s style. ", room, style)
	plan.WriteString("Replace dated surfaces, update fixtures and lighting, and introduce a cohesive palette. ")
	if req.Budget != nil {
		fmt.Fprintf(&plan, "Keep total spend under $%.0f by prioritizing high-impact surface work. ", *req.Budget)
	}
	if req.InspirationImage != nil {
		plan.WriteString("Echo the materials and mood of the supplied inspiration image.")
	}

	return &pipeline.RoomAnalysis{
		VisualAssessment: assessment,
		DesignPlan:       strings.TrimSpace(plan.String()),
	}, nil
}
