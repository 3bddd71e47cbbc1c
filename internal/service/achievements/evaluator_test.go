package achievements

import (
	"errors"
	"testing"
	"time"

	"github.com/ecoplant/plant-rewards/internal/models"
)

var testCatalog = []models.Achievement{
	{ID: "first_tree", ConditionType: models.ConditionPlantings, ConditionValue: 1, Points: 100},
	{ID: "five_trees", ConditionType: models.ConditionPlantings, ConditionValue: 5, Points: 300},
	{ID: "trusted", ConditionType: models.ConditionTrust, ConditionValue: 5, Points: 150},
	{ID: "spender", ConditionType: models.ConditionSpent, ConditionValue: 500, Points: 50},
	{ID: "three_species", ConditionType: models.ConditionPlantTypes, ConditionValue: 3, Points: 250},
}

// Mock repositories for testing
type mockAchievementRepository struct {
	catalog []models.Achievement
	earned  map[uint]map[string]bool
	awards  int
	err     error
}

func newMockAchievementRepository() *mockAchievementRepository {
	return &mockAchievementRepository{catalog: testCatalog, earned: make(map[uint]map[string]bool)}
}

func (m *mockAchievementRepository) GetAll() ([]models.Achievement, error) {
	return m.catalog, m.err
}

func (m *mockAchievementRepository) EarnedIDs(userID uint) (map[string]bool, error) {
	out := make(map[string]bool)
	for id := range m.earned[userID] {
		out[id] = true
	}
	return out, nil
}

func (m *mockAchievementRepository) Award(userID uint, achievementID string, earnedAt time.Time) (bool, error) {
	if m.earned[userID] == nil {
		m.earned[userID] = make(map[string]bool)
	}
	if m.earned[userID][achievementID] {
		return false, nil
	}
	m.earned[userID][achievementID] = true
	m.awards++
	return true, nil
}

type mockStats struct {
	plantings int
	types     []string
	spent     int
}

func (m *mockStats) CountApproved(uint) (int, error)           { return m.plantings, nil }
func (m *mockStats) DistinctPlantTypes(uint) ([]string, error) { return m.types, nil }
func (m *mockStats) TotalSpent(uint) (int, error)              { return m.spent, nil }

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name   string
		stats  models.AchievementStats
		earned map[string]bool
		want   []string
	}{
		{
			name:  "nothing qualifies",
			stats: models.AchievementStats{TrustRating: 4},
			want:  nil,
		},
		{
			name:  "first planting with default trust",
			stats: models.AchievementStats{Plantings: 1, PlantTypes: 1, TrustRating: 5},
			want:  []string{"first_tree", "trusted"},
		},
		{
			name:   "already earned are skipped",
			stats:  models.AchievementStats{Plantings: 6, PlantTypes: 3, TrustRating: 5, Spent: 500},
			earned: map[string]bool{"first_tree": true, "trusted": true},
			want:   []string{"five_trees", "spender", "three_species"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(testCatalog, tt.earned, tt.stats)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d achievements, want %d (%v)", len(got), len(tt.want), got)
			}
			for i, a := range got {
				if a.ID != tt.want[i] {
					t.Errorf("got[%d] = %s, want %s", i, a.ID, tt.want[i])
				}
			}
		})
	}
}

func TestEvaluator_CheckIsIdempotent(t *testing.T) {
	repo := newMockAchievementRepository()
	stats := &mockStats{plantings: 1, types: []string{"Oak"}}
	e := NewEvaluatorWithInterfaces(repo, stats, stats)
	user := &models.User{ID: 1, TrustRating: 5, Points: 1000}

	first, err := e.Check(user, time.Now())
	if err != nil {
		t.Fatalf("Check() failed: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("Expected 2 unlocked, got %d", len(first))
	}
	if user.Points != 1250 {
		t.Errorf("Points = %d, want 1250", user.Points)
	}

	second, err := e.Check(user, time.Now())
	if err != nil {
		t.Fatalf("second Check() failed: %v", err)
	}
	if len(second) != 0 {
		t.Errorf("Expected no new achievements, got %v", second)
	}
	if user.Points != 1250 || repo.awards != 2 {
		t.Errorf("Expected no re-award, points %d awards %d", user.Points, repo.awards)
	}
}

func TestEvaluator_CheckPropagatesErrors(t *testing.T) {
	repo := newMockAchievementRepository()
	repo.err = errors.New("db down")
	stats := &mockStats{plantings: 1}
	e := NewEvaluatorWithInterfaces(repo, stats, stats)

	if _, err := e.Check(&models.User{ID: 1}, time.Now()); err == nil {
		t.Error("Expected error")
	}
}

func TestProgressFor(t *testing.T) {
	a := models.Achievement{ID: "five_trees", ConditionType: models.ConditionPlantings, ConditionValue: 5}

	tests := []struct {
		plantings int
		percent   int
	}{
		{0, 0},
		{2, 40},
		{3, 60},
		{5, 100},
		{12, 100},
	}

	for _, tt := range tests {
		p := ProgressFor(a, models.AchievementStats{Plantings: tt.plantings})
		if p.Percent != tt.percent || p.Current != tt.plantings || p.Target != 5 {
			t.Errorf("plantings %d: got %+v", tt.plantings, p)
		}
	}

	spent := models.Achievement{ID: "spender", ConditionType: models.ConditionSpent, ConditionValue: 3}
	if p := ProgressFor(spent, models.AchievementStats{Spent: 2}); p.Percent != 66 {
		t.Errorf("Expected floored 66%%, got %d", p.Percent)
	}
}

func TestParseCatalog(t *testing.T) {
	catalog, err := LoadCatalog()
	if err != nil {
		t.Fatalf("LoadCatalog() failed: %v", err)
	}
	if len(catalog) == 0 {
		t.Fatal("Expected embedded catalog entries")
	}
	for i, a := range catalog {
		if a.SortOrder != i+1 {
			t.Errorf("%s: SortOrder = %d, want %d", a.ID, a.SortOrder, i+1)
		}
	}

	invalid := []string{
		"achievements:\n  - id: x\n    condition_type: karma\n    condition_value: 1\n",
		"achievements:\n  - id: x\n    condition_type: trust\n    condition_value: 0\n",
		"achievements:\n  - id: x\n    condition_type: trust\n    condition_value: 1\n  - id: x\n    condition_type: trust\n    condition_value: 2\n",
		"achievements:\n  - condition_type: trust\n    condition_value: 1\n",
	}
	for _, doc := range invalid {
		if _, err := ParseCatalog([]byte(doc)); err == nil {
			t.Errorf("Expected error for %q", doc)
		}
	}
}
