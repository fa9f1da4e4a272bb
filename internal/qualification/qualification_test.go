package qualification

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestCalculateProgress(t *testing.T) {
	tests := []struct {
		published, target int
		want              int
	}{
		{120, 100, 100},
		{0, 0, 0},
		{45, 60, 75},
		{1, 3, 33},
		{2, 3, 67},
		{1, 200, 1},
		{1, 201, 0},
		{10, -5, 0},
		{-3, 10, 0},
		{60, 60, 100},
	}

	for _, tt := range tests {
		if got := CalculateProgress(tt.published, tt.target); got != tt.want {
			t.Errorf("CalculateProgress(%d, %d) = %v, want %v", tt.published, tt.target, got, tt.want)
		}
	}
}

func TestCalculateQualifiedStatus(t *testing.T) {
	tests := []struct {
		published, target, minRequired int
		want                           Status
	}{
		{25, 60, 20, StatusQualified},
		{50, 60, 60, StatusNear},
		{10, 60, 20, StatusUnqualified},
		{0, 0, 0, StatusQualified},
		{48, 60, 50, StatusNear},
		{47, 60, 50, StatusUnqualified},
		{5, 0, 10, StatusUnqualified},
	}

	for _, tt := range tests {
		got := CalculateQualifiedStatus(tt.published, tt.target, tt.minRequired)
		if got != tt.want {
			t.Errorf("CalculateQualifiedStatus(%d, %d, %d) = %v, want %v",
				tt.published, tt.target, tt.minRequired, got, tt.want)
		}
	}
}

func TestThresholds_CustomNearPercent(t *testing.T) {
	strict := Thresholds{NearPercent: 95}
	if got := strict.Status(50, 60, 60); got != StatusUnqualified {
		t.Errorf("Status() = %v, want %v", got, StatusUnqualified)
	}

	// Zero-value thresholds fall back to the default.
	if got := (Thresholds{}).Status(10, 60, 20); got != StatusUnqualified {
		t.Errorf("Status() = %v, want %v", got, StatusUnqualified)
	}
	if got := (Thresholds{}).Status(50, 60, 60); got != StatusNear {
		t.Errorf("Status() = %v, want %v", got, StatusNear)
	}
}

func TestThresholds_Evaluate(t *testing.T) {
	got := DefaultThresholds().Evaluate(45, 60, 50)
	want := Result{PublishedCount: 45, TargetCount: 60, MinRequired: 50, Progress: 75, Status: StatusUnqualified}
	if got != want {
		t.Errorf("Evaluate() = %+v, want %+v", got, want)
	}
}

func TestCountFromFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{12, 12},
		{2.5, 3},
		{-1, 0},
		{math.NaN(), 0},
		{math.Inf(1), 0},
		{1e12, math.MaxInt32},
	}

	for _, tt := range tests {
		if got := CountFromFloat(tt.in); got != tt.want {
			t.Errorf("CountFromFloat(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// Property-based test: progress is bounded and status respects precedence
func TestQualification_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	counts := gen.IntRange(-10, 10000)

	properties.Property("progress stays within 0..100", prop.ForAll(
		func(published, target int) bool {
			p := CalculateProgress(published, target)
			return p >= 0 && p <= 100
		},
		counts, counts,
	))

	properties.Property("reaching minRequired always qualifies", prop.ForAll(
		func(minRequired, extra, target int) bool {
			return CalculateQualifiedStatus(minRequired+extra, target, minRequired) == StatusQualified
		},
		gen.IntRange(0, 5000), gen.IntRange(0, 5000), counts,
	))

	properties.Property("NEAR implies progress at threshold and below minRequired", prop.ForAll(
		func(published, target, minRequired int) bool {
			if CalculateQualifiedStatus(published, target, minRequired) != StatusNear {
				return true
			}
			return published < minRequired && CalculateProgress(published, target) >= DefaultNearPercent
		},
		counts, counts, counts,
	))

	properties.TestingRun(t)
}
