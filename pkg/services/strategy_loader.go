package services

import (
	"context"
	"fmt"
	"os"
	"sort"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/models"
	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/repositories"
)

// strategyFile is the on-disk shape of owner-supplied strategy definitions.
// Rule tables are data, not code: adding a rule means editing this file, not
// recompiling anything.
type strategyFile struct {
	Strategies []struct {
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
		Active      bool   `yaml:"active"`
		Rules       []struct {
			Order     int              `yaml:"order"`
			Type      string           `yaml:"type"`
			Priority  int              `yaml:"priority"`
			Predicate models.Predicate `yaml:"predicate"`
		} `yaml:"rules"`
	} `yaml:"strategies"`
}

// LoadStrategiesFromFile parses a strategy YAML file into domain strategies,
// with rules sorted by order and validated.
func LoadStrategiesFromFile(path string) ([]*models.Strategy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read strategy file: %w", err)
	}

	var file strategyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse strategy file: %w", err)
	}

	var strategies []*models.Strategy
	for _, def := range file.Strategies {
		if def.Name == "" {
			return nil, fmt.Errorf("strategy without a name in %s", path)
		}
		strategy := &models.Strategy{
			Name:        def.Name,
			Description: def.Description,
			Active:      def.Active,
		}

		seen := make(map[int]bool, len(def.Rules))
		for _, r := range def.Rules {
			t := models.CompressionType(r.Type)
			if !t.Valid() {
				return nil, fmt.Errorf("strategy %q rule %d: unknown compression type %q", def.Name, r.Order, r.Type)
			}
			if seen[r.Order] {
				return nil, fmt.Errorf("strategy %q: duplicate rule order %d", def.Name, r.Order)
			}
			seen[r.Order] = true
			strategy.Rules = append(strategy.Rules, models.Rule{
				Order:           r.Order,
				Predicate:       r.Predicate,
				CompressionType: t,
				Priority:        r.Priority,
			})
		}
		sort.Slice(strategy.Rules, func(i, j int) bool {
			return strategy.Rules[i].Order < strategy.Rules[j].Order
		})

		strategies = append(strategies, strategy)
	}

	return strategies, nil
}

// SeedStrategies loads the strategy file and saves each strategy into the
// store, replacing existing rule tables by name.
func SeedStrategies(ctx context.Context, repo repositories.StrategyRepository, path string, logger *zap.Logger) error {
	strategies, err := LoadStrategiesFromFile(path)
	if err != nil {
		return err
	}

	for _, strategy := range strategies {
		if err := repo.Save(ctx, strategy); err != nil {
			return fmt.Errorf("failed to save strategy %q: %w", strategy.Name, err)
		}
		logger.Info("Seeded strategy",
			zap.String("name", strategy.Name),
			zap.Int("rules", len(strategy.Rules)),
			zap.Bool("active", strategy.Active))
	}

	return nil
}
