package engine

import "testing"

func TestCalculateLevel(t *testing.T) {
	cases := []struct {
		experience int
		want       int
	}{
		{-5, 1},
		{0, 1},
		{1, 1},
		{99, 1},
		{100, 2},
		{399, 2},
		{400, 3},
		{2500, 6},
	}
	for _, tc := range cases {
		if got := CalculateLevel(tc.experience); got != tc.want {
			t.Errorf("CalculateLevel(%d) = %d, want %d", tc.experience, got, tc.want)
		}
	}
}

func TestCalculateLevelMonotone(t *testing.T) {
	prev := CalculateLevel(0)
	for exp := 1; exp <= 5000; exp += 7 {
		lvl := CalculateLevel(exp)
		if lvl < prev {
			t.Fatalf("level dropped from %d to %d at experience %d", prev, lvl, exp)
		}
		prev = lvl
	}
}

func TestTableScore(t *testing.T) {
	table := map[string]int{"feature": 20}
	if got := tableScore(table, "feature", 10); got != 20 {
		t.Fatalf("expected table value 20, got %d", got)
	}
	if got := tableScore(table, "spike", 10); got != 10 {
		t.Fatalf("expected fallback 10, got %d", got)
	}
	if got := tableScore(nil, "feature", 10); got != 10 {
		t.Fatalf("expected fallback on nil table, got %d", got)
	}
}
