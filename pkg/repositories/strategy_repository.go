package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/apperrors"
	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/database"
	"github.com/danimoya/HCC-CompAdvisor-sub003/pkg/models"
)

// StrategyRepository provides data access for strategies and their ordered
// rule tables. Rule sets are owner-supplied data; the matcher never mutates
// them.
type StrategyRepository interface {
	// Save inserts or replaces a strategy together with its rule table.
	Save(ctx context.Context, strategy *models.Strategy) error

	// GetByID returns one strategy with rules ordered by rule_order.
	GetByID(ctx context.Context, id uuid.UUID) (*models.Strategy, error)

	// GetByName returns one strategy by its unique name.
	GetByName(ctx context.Context, name string) (*models.Strategy, error)

	// ListActive returns all active strategies with their rules.
	ListActive(ctx context.Context) ([]*models.Strategy, error)
}

type strategyRepository struct {
	db *database.DB
}

// NewStrategyRepository creates a new StrategyRepository.
func NewStrategyRepository(db *database.DB) StrategyRepository {
	return &strategyRepository{db: db}
}

var _ StrategyRepository = (*strategyRepository)(nil)

func (r *strategyRepository) Save(ctx context.Context, strategy *models.Strategy) error {
	if strategy.ID == uuid.Nil {
		strategy.ID = uuid.New()
	}

	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO comp_strategies (id, name, description, active, updated_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (name) DO UPDATE
			SET description = EXCLUDED.description,
			    active = EXCLUDED.active,
			    updated_at = EXCLUDED.updated_at`,
			strategy.ID, strategy.Name, strategy.Description, strategy.Active, time.Now())
		if err != nil {
			return fmt.Errorf("failed to save strategy: %w", err)
		}

		// The incoming rule table replaces the stored one wholesale;
		// partial rule edits are not a thing.
		var storedID uuid.UUID
		if err := tx.QueryRow(ctx,
			`SELECT id FROM comp_strategies WHERE name = $1`, strategy.Name).Scan(&storedID); err != nil {
			return fmt.Errorf("failed to read back strategy id: %w", err)
		}
		strategy.ID = storedID

		if _, err := tx.Exec(ctx,
			`DELETE FROM comp_strategy_rules WHERE strategy_id = $1`, storedID); err != nil {
			return fmt.Errorf("failed to clear strategy rules: %w", err)
		}

		for i := range strategy.Rules {
			rule := &strategy.Rules[i]
			if rule.ID == uuid.Nil {
				rule.ID = uuid.New()
			}
			predicateJSON, err := json.Marshal(rule.Predicate)
			if err != nil {
				return fmt.Errorf("failed to marshal rule predicate: %w", err)
			}
			_, err = tx.Exec(ctx, `
				INSERT INTO comp_strategy_rules (id, strategy_id, rule_order, predicate, compression_type, priority)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				rule.ID, storedID, rule.Order, predicateJSON, string(rule.CompressionType), rule.Priority)
			if err != nil {
				return fmt.Errorf("failed to insert rule %d: %w", rule.Order, err)
			}
		}

		return nil
	})
}

func (r *strategyRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Strategy, error) {
	return r.get(ctx, `WHERE id = $1`, id)
}

func (r *strategyRepository) GetByName(ctx context.Context, name string) (*models.Strategy, error) {
	return r.get(ctx, `WHERE name = $1`, name)
}

func (r *strategyRepository) get(ctx context.Context, where string, arg any) (*models.Strategy, error) {
	strategy := &models.Strategy{}
	err := r.db.QueryRow(ctx,
		`SELECT id, name, description, active FROM comp_strategies `+where, arg).
		Scan(&strategy.ID, &strategy.Name, &strategy.Description, &strategy.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read strategy: %w", err)
	}

	rules, err := r.loadRules(ctx, strategy.ID)
	if err != nil {
		return nil, err
	}
	strategy.Rules = rules

	return strategy, nil
}

func (r *strategyRepository) ListActive(ctx context.Context) ([]*models.Strategy, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, description, active FROM comp_strategies WHERE active ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list strategies: %w", err)
	}
	defer rows.Close()

	var strategies []*models.Strategy
	for rows.Next() {
		s := &models.Strategy{}
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.Active); err != nil {
			return nil, fmt.Errorf("failed to scan strategy row: %w", err)
		}
		strategies = append(strategies, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate strategy rows: %w", err)
	}

	for _, s := range strategies {
		rules, err := r.loadRules(ctx, s.ID)
		if err != nil {
			return nil, err
		}
		s.Rules = rules
	}

	return strategies, nil
}

func (r *strategyRepository) loadRules(ctx context.Context, strategyID uuid.UUID) ([]models.Rule, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, rule_order, predicate, compression_type, priority
		FROM comp_strategy_rules
		WHERE strategy_id = $1
		ORDER BY rule_order`, strategyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load strategy rules: %w", err)
	}
	defer rows.Close()

	var rules []models.Rule
	for rows.Next() {
		var rule models.Rule
		var predicateJSON []byte
		var compressionType string
		if err := rows.Scan(&rule.ID, &rule.Order, &predicateJSON, &compressionType, &rule.Priority); err != nil {
			return nil, fmt.Errorf("failed to scan rule row: %w", err)
		}
		if err := json.Unmarshal(predicateJSON, &rule.Predicate); err != nil {
			return nil, fmt.Errorf("failed to unmarshal rule predicate: %w", err)
		}
		rule.CompressionType = models.CompressionType(compressionType)
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rule rows: %w", err)
	}

	return rules, nil
}
