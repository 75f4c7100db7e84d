package domain

import "fmt"

// Label is a demand quadrant combining revenue importance and demand stability.
type Label int

const (
	LabelLowRevenueVolatile  Label = 0 // not high revenue, unstable
	LabelLowRevenueStable    Label = 1 // not high revenue, stable
	LabelHighRevenueVolatile Label = 2 // high revenue, unstable
	LabelHighRevenueStable   Label = 3 // high revenue, stable
)

// AllLabels lists quadrants in ascending order.
var AllLabels = []Label{
	LabelLowRevenueVolatile,
	LabelLowRevenueStable,
	LabelHighRevenueVolatile,
	LabelHighRevenueStable,
}

// Valid reports whether l is one of the four quadrants.
func (l Label) Valid() bool {
	return l >= LabelLowRevenueVolatile && l <= LabelHighRevenueStable
}

// String returns a human-readable quadrant name.
func (l Label) String() string {
	switch l {
	case LabelLowRevenueVolatile:
		return "LOW_REVENUE_VOLATILE"
	case LabelLowRevenueStable:
		return "LOW_REVENUE_STABLE"
	case LabelHighRevenueVolatile:
		return "HIGH_REVENUE_VOLATILE"
	case LabelHighRevenueStable:
		return "HIGH_REVENUE_STABLE"
	default:
		return fmt.Sprintf("LABEL(%d)", int(l))
	}
}
