package pipeline

import (
	"context"
	"time"

	"github.com/refurbd/renovation-planner/internal/estimation"
	"github.com/refurbd/renovation-planner/internal/store/model"
)

// AnalyzeRequest bundles everything the vision model needs to assess a
// room.
type AnalyzeRequest struct {
	CurrentRoomImage string
	InspirationImage *string
	RoomType         model.RoomType
	DesiredStyle     string
	SquareFootage    float64
	Budget           *float64
	City             string
	State            string
	Country          string
}

type RoomAnalysis struct {
	VisualAssessment string
	DesignPlan       string
}

// RoomAnalyzer is the vision collaborator. Calls are slow and may fail
// transiently; the runner performs no retries of its own.
type RoomAnalyzer interface {
	Analyze(ctx context.Context, req AnalyzeRequest) (*RoomAnalysis, error)
}

// CostEstimator produces the dollar range and timeline text. Pure
// computation; the estimation package is the production implementation.
type CostEstimator interface {
	EstimateCost(roomType model.RoomType, scope model.RenovationScope, squareFootage float64, state, city string) estimation.CostEstimate
	EstimateTimeline(scope model.RenovationScope, roomType model.RoomType) string
}

type GenerateRequest struct {
	DesignDescription string
	RoomType          model.RoomType
	Style             string
	ImageSize         string
	ArtifactKey       string
}

type EditRequest struct {
	OriginalImagePath string
	EditInstructions  string
	ImageSize         string
	ArtifactKey       string
}

// ImageGenerator is the image-synthesis collaborator. Both calls
// return the stored artifact location and the wall-clock time the
// synthesis took.
type ImageGenerator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, time.Duration, error)
	Edit(ctx context.Context, req EditRequest) (string, time.Duration, error)
}

// NotificationSink delivers the completion notice. Best-effort: the
// runner logs failures and moves on.
type NotificationSink interface {
	NotifyCompletion(ctx context.Context, email, fullName, projectName string, projectID int64) error
}
