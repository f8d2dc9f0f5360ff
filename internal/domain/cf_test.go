package domain

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCombine(t *testing.T) {
	tests := []struct {
		name string
		a, b float64
		want float64
	}{
		{"both positive", 0.8, 0.6, 0.92},
		{"both negative", -0.5, -0.3, -0.65},
		{"mixed sign", 0.7, -0.4, 0.5},
		{"identity right", 0.55, 0, 0.55},
		{"identity left", 0, 0.55, 0.55},
		{"negative identity", -0.4, 0, -0.4},
		{"near certainty stays bounded", 0.99, 0.99, 0.9999},
		{"full contradiction", 1.0, -1.0, 0},
		{"strong pair", 0.7, 0.5, 0.85},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Combine(tt.a, tt.b)
			if !almostEqual(got, tt.want) {
				t.Errorf("Combine(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
			if got > 1.0 || got < -1.0 {
				t.Errorf("Combine(%v, %v) = %v out of [-1, 1]", tt.a, tt.b, got)
			}
		})
	}
}

func TestCombine_Symmetric(t *testing.T) {
	pairs := [][2]float64{{0.8, 0.6}, {-0.5, -0.3}, {0.7, -0.4}, {0.385, 0.12}}
	for _, p := range pairs {
		if ab, ba := Combine(p[0], p[1]), Combine(p[1], p[0]); !almostEqual(ab, ba) {
			t.Errorf("Combine(%v, %v) = %v but Combine(%v, %v) = %v", p[0], p[1], ab, p[1], p[0], ba)
		}
	}
}

func TestCombineAll(t *testing.T) {
	tests := []struct {
		name string
		cfs  []float64
		want float64
	}{
		{"empty", nil, 0},
		{"single", []float64{0.385}, 0.385},
		{"bacterial spot triple", []float64{0.3, 0.25, 0.2}, 0.58},
		{"wilt triad", []float64{0.12, 0.12, 0.12}, 0.318528},
		{"early blight pair", []float64{0.55, 0.5}, 0.775},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CombineAll(tt.cfs); !almostEqual(got, tt.want) {
				t.Errorf("CombineAll(%v) = %v, want %v", tt.cfs, got, tt.want)
			}
		})
	}
}

func TestAdjust(t *testing.T) {
	tests := []struct {
		name         string
		base, factor float64
		want         float64
	}{
		{"amplify", 0.8, 1.2, 0.96},
		{"dampen", 0.8, 0.7, 0.56},
		{"identity", 0.43, 1.0, 0.43},
		{"clamps high", 0.9, 2.0, 1.0},
		{"clamps low", -0.9, 2.0, -1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Adjust(tt.base, tt.factor); !almostEqual(got, tt.want) {
				t.Errorf("Adjust(%v, %v) = %v, want %v", tt.base, tt.factor, got, tt.want)
			}
		})
	}
}

func TestRank_StableDescending(t *testing.T) {
	in := []Conclusion{
		{Name: "a", CF: 0.6},
		{Name: "b", CF: 0.9},
		{Name: "c", CF: 0.7},
		{Name: "d", CF: 0.7},
	}

	ranked := Rank(in)

	wantOrder := []string{"b", "c", "d", "a"}
	for i, want := range wantOrder {
		if ranked[i].Name != want {
			t.Fatalf("rank position %d = %s, want %s", i, ranked[i].Name, want)
		}
	}
	// input untouched
	if in[0].Name != "a" {
		t.Error("Rank mutated its input")
	}
}

func TestSelectBest(t *testing.T) {
	if got := SelectBest(nil); got != nil {
		t.Errorf("SelectBest(nil) = %v, want nil", got)
	}

	in := []Conclusion{
		{Name: "a", CF: 0.6},
		{Name: "b", CF: 0.9},
		{Name: "c", CF: 0.7},
	}
	best := SelectBest(in)
	if best == nil || best.Name != "b" || !almostEqual(best.CF, 0.9) {
		t.Errorf("SelectBest = %+v, want b/0.9", best)
	}

	// ties keep first-seen
	tied := []Conclusion{{Name: "x", CF: 0.5}, {Name: "y", CF: 0.5}}
	if best := SelectBest(tied); best.Name != "x" {
		t.Errorf("tie went to %s, want x", best.Name)
	}
}

func TestToConfidenceLevel(t *testing.T) {
	tests := []struct {
		cf   float64
		want ConfidenceLevel
	}{
		{0.95, LevelVeryHigh},
		{0.8, LevelVeryHigh},
		{0.79, LevelHigh},
		{0.6, LevelHigh},
		{0.45, LevelModerate},
		{0.2, LevelLow},
		{0.05, LevelVeryLow},
		{0.0, LevelVeryLow},
		{-0.3, LevelNegative},
	}

	for _, tt := range tests {
		if got := ToConfidenceLevel(tt.cf); got != tt.want {
			t.Errorf("ToConfidenceLevel(%v) = %v, want %v", tt.cf, got, tt.want)
		}
	}
}

func TestToPercentage(t *testing.T) {
	if got := ToPercentage(0.85); got != "85%" {
		t.Errorf("ToPercentage(0.85) = %s, want 85%%", got)
	}
	if got := ToPercentage(-0.4); got != "-40%" {
		t.Errorf("ToPercentage(-0.4) = %s, want -40%%", got)
	}
}
