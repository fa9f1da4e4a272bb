// Package qualification classifies a collection's publish readiness from
// recipe counts.
//
// Two independent thresholds apply. minRequired decides QUALIFIED; the
// progress toward targetCount decides NEAR. Administrators set both
// separately, so neither is derived from the other.
package qualification

import "math"

// Status is the three-way qualification classification.
type Status string

const (
	StatusQualified   Status = "QUALIFIED"
	StatusNear        Status = "NEAR"
	StatusUnqualified Status = "UNQUALIFIED"
)

// DefaultNearPercent is the progress at which an unqualified collection is
// reported as NEAR.
const DefaultNearPercent = 80

// Thresholds configures the classification.
type Thresholds struct {
	NearPercent int
}

// DefaultThresholds returns the documented business thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{NearPercent: DefaultNearPercent}
}

// Result is a computed qualification snapshot.
type Result struct {
	PublishedCount int    `json:"publishedCount"`
	TargetCount    int    `json:"targetCount"`
	MinRequired    int    `json:"minRequired"`
	Progress       int    `json:"progress"`
	Status         Status `json:"status"`
}

// CalculateProgress returns round(100 * published / target) clamped to
// [0, 100]. A target of zero or less has no defined progress and yields 0.
func CalculateProgress(publishedCount, targetCount int) int {
	published := clampNonNegative(publishedCount)
	if targetCount <= 0 {
		return 0
	}
	pct := math.Round(float64(published) * 100 / float64(targetCount))
	if pct > 100 {
		return 100
	}
	return int(pct)
}

// CalculateQualifiedStatus classifies with the default thresholds.
func CalculateQualifiedStatus(publishedCount, targetCount, minRequired int) Status {
	return DefaultThresholds().Status(publishedCount, targetCount, minRequired)
}

// Status classifies counts. Precedence: QUALIFIED when published reaches
// minRequired, else NEAR when progress reaches NearPercent, else UNQUALIFIED.
// publishedCount must only include published recipes.
func (t Thresholds) Status(publishedCount, targetCount, minRequired int) Status {
	published := clampNonNegative(publishedCount)
	if published >= clampNonNegative(minRequired) {
		return StatusQualified
	}
	near := t.NearPercent
	if near <= 0 {
		near = DefaultNearPercent
	}
	if CalculateProgress(published, targetCount) >= near {
		return StatusNear
	}
	return StatusUnqualified
}

// Evaluate computes progress and status together.
func (t Thresholds) Evaluate(publishedCount, targetCount, minRequired int) Result {
	return Result{
		PublishedCount: clampNonNegative(publishedCount),
		TargetCount:    clampNonNegative(targetCount),
		MinRequired:    clampNonNegative(minRequired),
		Progress:       CalculateProgress(publishedCount, targetCount),
		Status:         t.Status(publishedCount, targetCount, minRequired),
	}
}

// CountFromFloat converts a count that arrived as a JSON number.
// NaN, infinities and negatives become 0; fractions round to nearest.
func CountFromFloat(f float64) int {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(math.Round(f))
}

func clampNonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
