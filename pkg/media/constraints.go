package media

import "fmt"

// OverconstrainedError reports a constraint that cannot be satisfied, with
// the offending constraint's name.
type OverconstrainedError struct {
	Constraint string
	Message    string
}

func (e *OverconstrainedError) Error() string {
	return fmt.Sprintf("overconstrained %q: %s", e.Constraint, e.Message)
}

// IntConstraint expresses an exact/ideal/min/max request for an integer
// setting, in the browser constraint style.
type IntConstraint struct {
	Exact *int
	Ideal *int
	Min   *int
	Max   *int
}

// ExactInt requires an exact value.
func ExactInt(v int) IntConstraint { return IntConstraint{Exact: &v} }

// IdealInt prefers a value but accepts others.
func IdealInt(v int) IntConstraint { return IntConstraint{Ideal: &v} }

// RangeInt bounds the value.
func RangeInt(minVal, maxVal int) IntConstraint {
	return IntConstraint{Min: &minVal, Max: &maxVal}
}

// resolve picks the effective value: exact wins, then ideal clamped to the
// range, then the range bound nearest the default, then the default.
func (c IntConstraint) resolve(def int) int {
	if c.Exact != nil {
		return *c.Exact
	}
	v := def
	if c.Ideal != nil {
		v = *c.Ideal
	}
	if c.Min != nil && v < *c.Min {
		v = *c.Min
	}
	if c.Max != nil && v > *c.Max {
		v = *c.Max
	}
	return v
}

// Validate reports whether a concrete value satisfies the constraint.
func (c IntConstraint) Validate(name string, value int) error {
	if c.Exact != nil && value != *c.Exact {
		return &OverconstrainedError{Constraint: name, Message: fmt.Sprintf("requires exactly %d, got %d", *c.Exact, value)}
	}
	if c.Min != nil && value < *c.Min {
		return &OverconstrainedError{Constraint: name, Message: fmt.Sprintf("minimum is %d, got %d", *c.Min, value)}
	}
	if c.Max != nil && value > *c.Max {
		return &OverconstrainedError{Constraint: name, Message: fmt.Sprintf("maximum is %d, got %d", *c.Max, value)}
	}
	return nil
}

// FloatConstraint is IntConstraint for floating-point settings.
type FloatConstraint struct {
	Exact *float64
	Ideal *float64
	Min   *float64
	Max   *float64
}

// ExactFloat requires an exact value.
func ExactFloat(v float64) FloatConstraint { return FloatConstraint{Exact: &v} }

// IdealFloat prefers a value but accepts others.
func IdealFloat(v float64) FloatConstraint { return FloatConstraint{Ideal: &v} }

// RangeFloat bounds the value.
func RangeFloat(minVal, maxVal float64) FloatConstraint {
	return FloatConstraint{Min: &minVal, Max: &maxVal}
}

func (c FloatConstraint) resolve(def float64) float64 {
	if c.Exact != nil {
		return *c.Exact
	}
	v := def
	if c.Ideal != nil {
		v = *c.Ideal
	}
	if c.Min != nil && v < *c.Min {
		v = *c.Min
	}
	if c.Max != nil && v > *c.Max {
		v = *c.Max
	}
	return v
}

// Validate reports whether a concrete value satisfies the constraint.
func (c FloatConstraint) Validate(name string, value float64) error {
	if c.Exact != nil && value != *c.Exact {
		return &OverconstrainedError{Constraint: name, Message: fmt.Sprintf("requires exactly %v, got %v", *c.Exact, value)}
	}
	if c.Min != nil && value < *c.Min {
		return &OverconstrainedError{Constraint: name, Message: fmt.Sprintf("minimum is %v, got %v", *c.Min, value)}
	}
	if c.Max != nil && value > *c.Max {
		return &OverconstrainedError{Constraint: name, Message: fmt.Sprintf("maximum is %v, got %v", *c.Max, value)}
	}
	return nil
}

// FacingMode selects a camera direction.
type FacingMode string

const (
	FacingModeUser        FacingMode = "user"
	FacingModeEnvironment FacingMode = "environment"
)

// DisplaySurface selects what GetDisplayMedia captures.
type DisplaySurface string

const (
	DisplaySurfaceMonitor DisplaySurface = "monitor"
	DisplaySurfaceWindow  DisplaySurface = "window"
)
