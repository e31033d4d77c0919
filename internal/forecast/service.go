package forecast

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// Service orchestrates forecast runs: it loads staged inputs, executes the
// pipeline, caches results by parameters and records run history.
type Service struct {
	repo   Repository
	cache  *Cache
	runner *Runner
	group  singleflight.Group
	now    func() time.Time
}

// NewService wires a Repository, a Cache helper and a configured Runner.
func NewService(repo Repository, cache *Cache, runner *Runner) *Service {
	return &Service{repo: repo, cache: cache, runner: runner, now: time.Now}
}

// WithClock overrides the clock for deterministic tests.
func (s *Service) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// Run executes the forecast for the given parameters. Concurrent identical
// requests collapse into one execution; completed runs are served from cache
// until the next import bumps the version.
func (s *Service) Run(ctx context.Context, params Params) ([]ForecastResult, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("forecast service not initialised")
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	key, err := s.cache.BuildKey(ctx, runKeyParts(params)...)
	if err != nil {
		return nil, err
	}

	var results []ForecastResult
	fetch := func(ctx context.Context) (interface{}, error) {
		return s.execute(ctx, params)
	}
	load := func() (interface{}, error) {
		var cached []ForecastResult
		if err := s.cache.FetchJSON(ctx, key, &cached, fetch); err != nil {
			return nil, err
		}
		return cached, nil
	}
	value, err, _ := s.group.Do(key, load)
	if err != nil {
		return nil, err
	}
	results = value.([]ForecastResult)
	return results, nil
}

func (s *Service) execute(ctx context.Context, params Params) ([]ForecastResult, error) {
	inputs, err := s.repo.LoadInputs(ctx, params.Entity)
	if err != nil {
		return nil, err
	}

	runner := s.runner
	if groups, err := s.repo.LoadPoolGroups(ctx); err == nil && len(groups) > 0 {
		if configured, gerr := NewRunner(groups); gerr == nil {
			runner = configured
		} else {
			return nil, gerr
		}
	} else if err != nil {
		return nil, err
	}

	results, err := runner.Run(ctx, inputs, params)
	if err != nil {
		return nil, err
	}

	finished := s.now().UTC()
	for _, result := range results {
		record := RunRecord{
			ID:         uuid.New(),
			Scenario:   result.Scenario,
			Params:     params,
			Warnings:   len(result.Warnings),
			Periods:    len(result.Periods),
			FinishedAt: finished,
			Assumption: result.Assumptions,
		}
		if err := s.repo.InsertRun(ctx, record); err != nil {
			return nil, err
		}
	}
	return results, nil
}

// Scenarios lists the distinct scenario names present in the staged events.
func (s *Service) Scenarios(ctx context.Context) ([]string, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("forecast service not initialised")
	}
	inputs, err := s.repo.LoadInputs(ctx, "")
	if err != nil {
		return nil, err
	}
	return inputs.Scenarios(), nil
}

// ImportSummary reports the outcome of a staging table import: how many rows
// loaded, how many the normalizer rejected, and why.
type ImportSummary struct {
	Table    string    `json:"table"`
	Imported int64     `json:"imported"`
	Rejected int       `json:"rejected"`
	Warnings []Warning `json:"warnings,omitempty"`
}

// Import replaces a staging table and invalidates cached results. Malformed
// rows are rejected with warnings rather than failing the whole import.
func (s *Service) Import(ctx context.Context, table RawTable) (ImportSummary, error) {
	if s == nil || s.repo == nil {
		return ImportSummary{}, fmt.Errorf("forecast service not initialised")
	}
	n, warnings, err := s.repo.ReplaceTable(ctx, table)
	if err != nil {
		return ImportSummary{}, err
	}
	if err := s.cache.Bump(ctx); err != nil {
		return ImportSummary{}, fmt.Errorf("forecast: bump cache after import: %w", err)
	}
	summary := ImportSummary{Table: table.Name, Imported: n, Warnings: warnings}
	for _, w := range warnings {
		if w.Kind == WarnValidation {
			summary.Rejected++
		}
	}
	return summary, nil
}

// Refresh recomputes and caches the default run ahead of demand. Jobs call
// this after imports so the first interactive request is already warm.
func (s *Service) Refresh(ctx context.Context, params Params) error {
	// Bump first so the run recomputes from current inputs instead of
	// serving whatever the previous version cached.
	if err := s.cache.Bump(ctx); err != nil {
		return fmt.Errorf("forecast: bump cache before refresh: %w", err)
	}
	_, err := s.Run(ctx, params)
	return err
}

// History returns recent run records, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]RunRecord, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("forecast service not initialised")
	}
	return s.repo.ListRuns(ctx, limit)
}

// Lookup fetches one run record by identifier.
func (s *Service) Lookup(ctx context.Context, id uuid.UUID) (RunRecord, error) {
	if s == nil || s.repo == nil {
		return RunRecord{}, fmt.Errorf("forecast service not initialised")
	}
	return s.repo.GetRun(ctx, id)
}

// ImportTableNames lists the canonical table names accepted by Import.
func ImportTableNames() []string {
	return []string{TableLedger, TableAccountMap, TableDirectCosts, TableEvents}
}

// ResolveTableName matches a user supplied table identifier case
// insensitively against the canonical names.
func ResolveTableName(name string) (string, bool) {
	for _, canonical := range ImportTableNames() {
		if strings.EqualFold(name, canonical) {
			return canonical, true
		}
	}
	return "", false
}
