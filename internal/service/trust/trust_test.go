package trust

import (
	"math"
	"testing"
	"time"

	"github.com/ecoplant/plant-rewards/internal/models"
)

func TestApplyDeclinePenalty(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		trust       int
		wantTrust   int
		wantChanged bool
	}{
		{"default rating", 5, 4, true},
		{"floor at zero", 0, 0, false},
		{"from one", 1, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := &models.User{TrustRating: tt.trust, DeclinedCount: 2}

			changed := ApplyDeclinePenalty(user, now)

			if changed != tt.wantChanged {
				t.Errorf("changed = %v, want %v", changed, tt.wantChanged)
			}
			if user.TrustRating != tt.wantTrust {
				t.Errorf("TrustRating = %d, want %d", user.TrustRating, tt.wantTrust)
			}
			if user.DeclinedCount != 3 {
				t.Errorf("DeclinedCount = %d, want 3", user.DeclinedCount)
			}
			if !user.LastTrustRecovery.Equal(now) {
				t.Errorf("LastTrustRecovery = %v, want %v", user.LastTrustRecovery, now)
			}
		})
	}
}

func TestRankScore(t *testing.T) {
	tests := []struct {
		points int
		trust  int
		want   float64
	}{
		{0, 0, 0},
		{0, 10, 40},
		{1000, 5, 620},
		{500, 5, 320},
	}

	for _, tt := range tests {
		got := RankScore(&models.User{Points: tt.points, TrustRating: tt.trust})
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("RankScore(%d, %d) = %f, want %f", tt.points, tt.trust, got, tt.want)
		}
	}
}

func TestClamp(t *testing.T) {
	for in, want := range map[int]int{-3: 0, 0: 0, 7: 7, 10: 10, 12: 10} {
		if got := Clamp(in); got != want {
			t.Errorf("Clamp(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestDisabledRecovery(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	user := &models.User{TrustRating: 3, LastTrustRecovery: start}

	policy := NewPolicy(false, 7)
	if policy.Enabled() {
		t.Error("Expected disabled policy")
	}
	if policy.Apply(user, start.AddDate(1, 0, 0)) {
		t.Error("Expected no recovery")
	}
	if user.TrustRating != 3 {
		t.Errorf("TrustRating = %d, want 3", user.TrustRating)
	}
}

func TestIntervalRecovery(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	week := 7 * 24 * time.Hour

	tests := []struct {
		name      string
		trust     int
		elapsed   time.Duration
		wantTrust int
		wantApply bool
		wantClock time.Time
	}{
		{"less than interval", 3, 6 * 24 * time.Hour, 3, false, start},
		{"one interval", 3, week + time.Hour, 4, true, start.Add(week)},
		{"three intervals", 3, 3 * week, 6, true, start.Add(3 * week)},
		{"capped at max", 9, 5 * week, 10, true, start.Add(5 * week)},
		{"already max", 10, 5 * week, 10, false, start},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := &models.User{TrustRating: tt.trust, LastTrustRecovery: start}
			policy := NewPolicy(true, 7)

			applied := policy.Apply(user, start.Add(tt.elapsed))

			if applied != tt.wantApply {
				t.Errorf("applied = %v, want %v", applied, tt.wantApply)
			}
			if user.TrustRating != tt.wantTrust {
				t.Errorf("TrustRating = %d, want %d", user.TrustRating, tt.wantTrust)
			}
			if !user.LastTrustRecovery.Equal(tt.wantClock) {
				t.Errorf("LastTrustRecovery = %v, want %v", user.LastTrustRecovery, tt.wantClock)
			}
		})
	}
}

func TestTrustStaysInBounds(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	user := &models.User{TrustRating: models.DefaultTrustRating, LastTrustRecovery: start}
	policy := IntervalRecovery{Interval: 24 * time.Hour}

	now := start
	for i := 0; i < 50; i++ {
		now = now.Add(time.Duration(i%4) * 24 * time.Hour)
		if i%3 == 0 {
			ApplyDeclinePenalty(user, now)
		} else {
			policy.Apply(user, now)
		}
		if user.TrustRating < 0 || user.TrustRating > models.MaxTrustRating {
			t.Fatalf("step %d: trust %d out of bounds", i, user.TrustRating)
		}
	}
}
