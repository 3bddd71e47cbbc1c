package achievements

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/ecoplant/plant-rewards/internal/models"
)

//go:embed catalog.yaml
var catalogYAML []byte

type catalogFile struct {
	Achievements []models.Achievement `yaml:"achievements"`
}

// LoadCatalog parses the embedded achievement catalog.
func LoadCatalog() ([]models.Achievement, error) {
	return ParseCatalog(catalogYAML)
}

// ParseCatalog parses and validates a catalog document. Sort order follows
// document order.
func ParseCatalog(data []byte) ([]models.Achievement, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse achievement catalog: %w", err)
	}

	seen := make(map[string]bool, len(file.Achievements))
	for i := range file.Achievements {
		a := &file.Achievements[i]
		if a.ID == "" {
			return nil, fmt.Errorf("achievement %d: id is required", i)
		}
		if seen[a.ID] {
			return nil, fmt.Errorf("achievement %s: duplicate id", a.ID)
		}
		seen[a.ID] = true

		if _, ok := (models.AchievementStats{}).Value(a.ConditionType); !ok {
			return nil, fmt.Errorf("achievement %s: unknown condition type %q", a.ID, a.ConditionType)
		}
		if a.ConditionValue <= 0 {
			return nil, fmt.Errorf("achievement %s: condition value must be positive", a.ID)
		}
		if a.Points < 0 {
			return nil, fmt.Errorf("achievement %s: points must not be negative", a.ID)
		}
		a.SortOrder = i + 1
	}

	return file.Achievements, nil
}
