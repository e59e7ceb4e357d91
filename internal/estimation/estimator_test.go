package estimation_test

import (
	"github.com/refurbd/renovation-planner/internal/estimation"
	"github.com/refurbd/renovation-planner/internal/store/model"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("cost estimator", func() {
	estimator := estimation.NewCostEstimator()

	It("prices a full kitchen remodel in San Francisco", func() {
		// kitchen/full base rate 300-500 per sqft, CA 1.35 x SF 1.25
		estimate := estimator.EstimateCost(model.RoomTypeKitchen, model.ScopeFull, 200, "CA", "San Francisco")

		Expect(estimate.LocationMultiplier).To(Equal(1.69))
		Expect(estimate.PerSqftLow).To(Equal(506.25))
		Expect(estimate.PerSqftHigh).To(Equal(843.75))
		Expect(estimate.CostLow).To(Equal(101250.0))
		Expect(estimate.CostHigh).To(Equal(168750.0))
	})

	It("uses the national rate without a location", func() {
		estimate := estimator.EstimateCost(model.RoomTypeBathroom, model.ScopeModerate, 100, "", "")

		Expect(estimate.LocationMultiplier).To(Equal(1.0))
		Expect(estimate.CostLow).To(Equal(20000.0))
		Expect(estimate.CostHigh).To(Equal(35000.0))
	})

	It("normalizes state and city casing", func() {
		upper := estimator.EstimateCost(model.RoomTypeKitchen, model.ScopeFull, 150, "CA", "San Francisco")
		lower := estimator.EstimateCost(model.RoomTypeKitchen, model.ScopeFull, 150, "ca", "san francisco")

		Expect(lower).To(Equal(upper))
	})

	It("ignores locations it has no table entry for", func() {
		estimate := estimator.EstimateCost(model.RoomTypeBedroom, model.ScopeCosmetic, 100, "ZZ", "Nowhereville")

		Expect(estimate.LocationMultiplier).To(Equal(1.0))
		Expect(estimate.CostLow).To(Equal(3000.0))
		Expect(estimate.CostHigh).To(Equal(6000.0))
	})

	It("falls back to the default rate for an unknown scope", func() {
		estimate := estimator.EstimateCost(model.RoomTypeKitchen, model.RenovationScope("partial"), 100, "", "")

		Expect(estimate.CostLow).To(Equal(10000.0))
		Expect(estimate.CostHigh).To(Equal(20000.0))
	})

	It("splits the breakdown 45/40/5/10", func() {
		estimate := estimator.EstimateCost(model.RoomTypeLivingRoom, model.ScopeFull, 100, "TX", "Dallas")

		Expect(estimate.Breakdown["materials_low"]).To(BeNumerically("~", estimate.CostLow*0.45, 0.01))
		Expect(estimate.Breakdown["labor_low"]).To(BeNumerically("~", estimate.CostLow*0.40, 0.01))
		Expect(estimate.Breakdown["permits_low"]).To(BeNumerically("~", estimate.CostLow*0.05, 0.01))
		Expect(estimate.Breakdown["contingency_low"]).To(BeNumerically("~", estimate.CostLow*0.10, 0.01))

		sumLow := estimate.Breakdown["materials_low"] +
			estimate.Breakdown["labor_low"] +
			estimate.Breakdown["permits_low"] +
			estimate.Breakdown["contingency_low"]
		Expect(sumLow).To(BeNumerically("~", estimate.CostLow, 0.01))

		sumHigh := estimate.Breakdown["materials_high"] +
			estimate.Breakdown["labor_high"] +
			estimate.Breakdown["permits_high"] +
			estimate.Breakdown["contingency_high"]
		Expect(sumHigh).To(BeNumerically("~", estimate.CostHigh, 0.01))
	})
})

var _ = Describe("timeline estimator", func() {
	estimator := estimation.NewCostEstimator()

	It("lists every phase for the scope", func() {
		timeline := estimator.EstimateTimeline(model.ScopeFull, model.RoomTypeBedroom)

		Expect(timeline).To(ContainSubstring("**Estimated Timeline:** 2-4 months"))
		Expect(timeline).To(ContainSubstring("- Planning & Permits: 2-3 weeks"))
		Expect(timeline).To(ContainSubstring("- Demolition: 1 week"))
		Expect(timeline).To(ContainSubstring("- Rough Installation: 3-4 weeks"))
		Expect(timeline).To(ContainSubstring("- Fine Installation: 2-3 weeks"))
		Expect(timeline).To(ContainSubstring("- Finishing: 2 weeks"))
		Expect(timeline).ToNot(ContainSubstring("*Note:"))
	})

	It("adds the kitchen and bathroom notes", func() {
		kitchen := estimator.EstimateTimeline(model.ScopeCosmetic, model.RoomTypeKitchen)
		Expect(kitchen).To(ContainSubstring("temporary alternative cooking arrangements"))

		bathroom := estimator.EstimateTimeline(model.ScopeCosmetic, model.RoomTypeBathroom)
		Expect(bathroom).To(ContainSubstring("alternative bathroom during renovation"))
	})

	It("treats an unknown scope as moderate", func() {
		timeline := estimator.EstimateTimeline(model.RenovationScope("partial"), model.RoomTypeBedroom)

		Expect(timeline).To(ContainSubstring("**Estimated Timeline:** 3-6 weeks"))
	})
})
