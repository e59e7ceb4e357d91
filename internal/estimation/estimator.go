package estimation

import (
	"fmt"
	"math"
	"strings"

	"github.com/refurbd/renovation-planner/internal/store/model"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type rateRange struct {
	Low  float64
	High float64
}

// baseRates holds per-square-foot rate bands (national average, 2024).
var baseRates = map[model.RoomType]map[model.RenovationScope]rateRange{
	model.RoomTypeKitchen: {
		model.ScopeCosmetic: {50, 100},
		model.ScopeModerate: {150, 250},
		model.ScopeFull:     {300, 500},
		model.ScopeLuxury:   {600, 1200},
	},
	model.RoomTypeBathroom: {
		model.ScopeCosmetic: {75, 125},
		model.ScopeModerate: {200, 350},
		model.ScopeFull:     {400, 600},
		model.ScopeLuxury:   {800, 1500},
	},
	model.RoomTypeBedroom: {
		model.ScopeCosmetic: {30, 60},
		model.ScopeModerate: {75, 150},
		model.ScopeFull:     {150, 300},
		model.ScopeLuxury:   {400, 800},
	},
	model.RoomTypeLivingRoom: {
		model.ScopeCosmetic: {40, 80},
		model.ScopeModerate: {100, 200},
		model.ScopeFull:     {200, 400},
		model.ScopeLuxury:   {500, 1000},
	},
	model.RoomTypeDiningRoom: {
		model.ScopeCosmetic: {35, 70},
		model.ScopeModerate: {90, 180},
		model.ScopeFull:     {180, 350},
		model.ScopeLuxury:   {450, 900},
	},
	model.RoomTypeBasement: {
		model.ScopeCosmetic: {40, 90},
		model.ScopeModerate: {100, 200},
		model.ScopeFull:     {200, 450},
		model.ScopeLuxury:   {500, 1100},
	},
	model.RoomTypeOther: {
		model.ScopeCosmetic: {40, 80},
		model.ScopeModerate: {100, 200},
		model.ScopeFull:     {200, 400},
		model.ScopeLuxury:   {500, 1000},
	},
}

var defaultRate = rateRange{100, 200}

var stateMultipliers = map[string]float64{
	"CA": 1.35,
	"NY": 1.30,
	"HI": 1.40,
	"MA": 1.25,
	"CT": 1.25,
	"NJ": 1.25,
	"WA": 1.20,
	"CO": 1.15,
	"OR": 1.15,
	"MD": 1.15,

	"IL": 1.10,
	"FL": 1.05,
	"TX": 1.00,
	"AZ": 1.00,
	"NC": 0.95,
	"GA": 0.95,
	"VA": 1.05,
	"PA": 1.00,

	"OH": 0.90,
	"MI": 0.90,
	"IN": 0.85,
	"TN": 0.85,
	"MO": 0.85,
	"AL": 0.80,
	"MS": 0.75,
	"AR": 0.80,
	"KY": 0.85,
	"WV": 0.80,
}

// cityMultipliers stack on top of the state multiplier.
var cityMultipliers = map[string]float64{
	"San Francisco": 1.25,
	"New York":      1.20,
	"Los Angeles":   1.15,
	"Seattle":       1.15,
	"Boston":        1.15,
	"Washington":    1.10,
	"San Diego":     1.10,
	"Denver":        1.10,
	"Portland":      1.10,
	"Miami":         1.10,
	"Chicago":       1.05,
	"Austin":        1.05,

	"Phoenix":   1.00,
	"Dallas":    1.00,
	"Houston":   0.95,
	"Atlanta":   0.95,
	"Charlotte": 0.95,
	"Nashville": 0.95,
}

// Breakdown split of the total estimate.
const (
	materialsPct   = 0.45
	laborPct       = 0.40
	permitsPct     = 0.05
	contingencyPct = 0.10
)

// CostEstimate is the full output of one estimate run. Breakdown keys
// line up with what the frontend charts expect.
type CostEstimate struct {
	CostLow            float64            `json:"cost_low"`
	CostHigh           float64            `json:"cost_high"`
	LocationMultiplier float64            `json:"location_multiplier"`
	Breakdown          map[string]float64 `json:"breakdown"`
	PerSqftLow         float64            `json:"per_sqft_low"`
	PerSqftHigh        float64            `json:"per_sqft_high"`
}

// CostEstimator turns room type, scope, square footage and location
// into a dollar range. It is pure arithmetic over fixed tables, no
// state and no I/O.
type CostEstimator struct{}

func NewCostEstimator() *CostEstimator {
	return &CostEstimator{}
}

func (e *CostEstimator) EstimateCost(roomType model.RoomType, scope model.RenovationScope, squareFootage float64, state, city string) CostEstimate {
	rate := defaultRate
	if scopes, ok := baseRates[roomType]; ok {
		if r, ok := scopes[scope]; ok {
			rate = r
		}
	}

	multiplier := 1.0
	if state != "" {
		if m, ok := stateMultipliers[strings.ToUpper(state)]; ok {
			multiplier *= m
		}
	}
	if city != "" {
		if m, ok := cityMultipliers[cases.Title(language.AmericanEnglish).String(city)]; ok {
			multiplier *= m
		}
	}

	adjustedLow := rate.Low * multiplier
	adjustedHigh := rate.High * multiplier
	totalLow := adjustedLow * squareFootage
	totalHigh := adjustedHigh * squareFootage

	return CostEstimate{
		CostLow:            round2(totalLow),
		CostHigh:           round2(totalHigh),
		LocationMultiplier: round2(multiplier),
		Breakdown: map[string]float64{
			"materials_low":    totalLow * materialsPct,
			"materials_high":   totalHigh * materialsPct,
			"labor_low":        totalLow * laborPct,
			"labor_high":       totalHigh * laborPct,
			"permits_low":      totalLow * permitsPct,
			"permits_high":     totalHigh * permitsPct,
			"contingency_low":  totalLow * contingencyPct,
			"contingency_high": totalHigh * contingencyPct,
		},
		PerSqftLow:  round2(adjustedLow),
		PerSqftHigh: round2(adjustedHigh),
	}
}

type phase struct {
	Name     string
	Duration string
}

type timelinePlan struct {
	Duration string
	Phases   []phase
}

var timelines = map[model.RenovationScope]timelinePlan{
	model.ScopeCosmetic: {
		Duration: "1-2 weeks",
		Phases: []phase{
			{"Planning & Prep", "1-2 days"},
			{"Painting/Updates", "3-5 days"},
			{"Finishing", "2-3 days"},
		},
	},
	model.ScopeModerate: {
		Duration: "3-6 weeks",
		Phases: []phase{
			{"Planning & Permits", "1 week"},
			{"Demolition", "2-3 days"},
			{"Installation", "2-3 weeks"},
			{"Finishing", "1 week"},
		},
	},
	model.ScopeFull: {
		Duration: "2-4 months",
		Phases: []phase{
			{"Planning & Permits", "2-3 weeks"},
			{"Demolition", "1 week"},
			{"Rough Installation", "3-4 weeks"},
			{"Fine Installation", "2-3 weeks"},
			{"Finishing", "2 weeks"},
		},
	},
	model.ScopeLuxury: {
		Duration: "4-6 months",
		Phases: []phase{
			{"Planning & Design", "4-6 weeks"},
			{"Permits", "2-4 weeks"},
			{"Demolition", "1-2 weeks"},
			{"Custom Work", "8-12 weeks"},
			{"Installation", "4-6 weeks"},
			{"Finishing", "2-3 weeks"},
		},
	},
}

// EstimateTimeline renders a markdown timeline for the scope, with a
// room-specific note where one applies.
func (e *CostEstimator) EstimateTimeline(scope model.RenovationScope, roomType model.RoomType) string {
	plan, ok := timelines[scope]
	if !ok {
		plan = timelines[model.ScopeModerate]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**Estimated Timeline:** %s\n\n", plan.Duration)
	b.WriteString("**Phases:**\n")
	for _, p := range plan.Phases {
		fmt.Fprintf(&b, "- %s: %s\n", p.Name, p.Duration)
	}

	switch roomType {
	case model.RoomTypeKitchen:
		b.WriteString("\n*Note: Kitchen projects may require temporary alternative cooking arrangements.*")
	case model.RoomTypeBathroom:
		b.WriteString("\n*Note: You may need to use an alternative bathroom during renovation.*")
	}

	return b.String()
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
