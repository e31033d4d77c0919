package forecast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgercast/ledgercast/internal/platform/db"
	"github.com/ledgercast/ledgercast/internal/shared"
)

// ErrRunNotFound indicates the requested forecast run is missing.
var ErrRunNotFound = errors.New("forecast: run not found")

// Repository abstracts persistence for forecast inputs and run history.
type Repository interface {
	LoadInputs(ctx context.Context, entity string) (Inputs, error)
	LoadPoolGroups(ctx context.Context) ([]PoolGroup, error)
	ReplaceTable(ctx context.Context, table RawTable) (int64, []Warning, error)
	InsertRun(ctx context.Context, run RunRecord) error
	GetRun(ctx context.Context, id uuid.UUID) (RunRecord, error)
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)
}

// RunRecord captures a completed forecast run for audit history.
type RunRecord struct {
	ID         uuid.UUID   `json:"id"`
	Scenario   string      `json:"scenario"`
	Params     Params      `json:"params"`
	Warnings   int         `json:"warnings"`
	Periods    int         `json:"periods"`
	FinishedAt time.Time   `json:"finished_at"`
	Assumption Assumptions `json:"assumptions"`
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a forecast repository backed by Postgres.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// tableColumns defines the physical layout of each staging table. Import and
// load share this single source so the two can never drift apart.
var tableColumns = map[string]struct {
	relation string
	columns  []string
}{
	TableLedger:      {"gl_actuals", []string{"period", "account", "amount", "entity"}},
	TableAccountMap:  {"account_map", []string{"account", "pool", "base_category", "is_unallowable", "notes"}},
	TableDirectCosts: {"direct_costs_by_project", []string{"period", "project", "labor", "labor_hours", "subcontract", "odc", "travel"}},
	TableEvents:      {"scenario_events", []string{"scenario", "event_type", "project", "effective_period", "payload", "notes", "source_row"}},
}

func (r *repository) LoadInputs(ctx context.Context, entity string) (Inputs, error) {
	var inputs Inputs

	ledger, err := r.loadLedger(ctx, entity)
	if err != nil {
		return Inputs{}, err
	}
	inputs.Ledger = ledger

	mappings, err := r.loadAccountMap(ctx)
	if err != nil {
		return Inputs{}, err
	}
	inputs.Mappings = mappings

	direct, err := r.loadDirectCosts(ctx)
	if err != nil {
		return Inputs{}, err
	}
	inputs.DirectCosts = direct

	events, err := r.loadEvents(ctx)
	if err != nil {
		return Inputs{}, err
	}
	inputs.Events = events
	return inputs, nil
}

func (r *repository) loadLedger(ctx context.Context, entity string) ([]LedgerRow, error) {
	query := `SELECT period, account, amount, COALESCE(entity, '')
		FROM gl_actuals`
	args := []interface{}{}
	if entity != "" {
		query += ` WHERE entity = $1`
		args = append(args, entity)
	}
	query += ` ORDER BY period, account, id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("forecast: load ledger: %w", err)
	}
	defer rows.Close()

	var out []LedgerRow
	for rows.Next() {
		var row LedgerRow
		var period string
		if err := rows.Scan(&period, &row.Account, &row.Amount, &row.Entity); err != nil {
			return nil, fmt.Errorf("forecast: scan ledger: %w", err)
		}
		row.Period, err = shared.ParsePeriod(period)
		if err != nil {
			return nil, fmt.Errorf("forecast: ledger period: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *repository) loadAccountMap(ctx context.Context) ([]AccountMapping, error) {
	rows, err := r.pool.Query(ctx, `SELECT account, pool, COALESCE(base_category, ''),
		COALESCE(is_unallowable, false), COALESCE(notes, '')
		FROM account_map ORDER BY account`)
	if err != nil {
		return nil, fmt.Errorf("forecast: load account map: %w", err)
	}
	defer rows.Close()

	var out []AccountMapping
	for rows.Next() {
		var m AccountMapping
		var base string
		if err := rows.Scan(&m.Account, &m.PoolName, &base, &m.IsUnallowable, &m.Notes); err != nil {
			return nil, fmt.Errorf("forecast: scan account map: %w", err)
		}
		if base != "" {
			cat, err := ParseBaseCategory(base)
			if err != nil {
				return nil, fmt.Errorf("forecast: account %s: %w", m.Account, err)
			}
			m.Base = cat
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *repository) loadDirectCosts(ctx context.Context) ([]DirectCostRow, error) {
	rows, err := r.pool.Query(ctx, `SELECT period, project, labor, labor_hours, subcontract, odc, travel
		FROM direct_costs_by_project ORDER BY period, project, id`)
	if err != nil {
		return nil, fmt.Errorf("forecast: load direct costs: %w", err)
	}
	defer rows.Close()

	var out []DirectCostRow
	for rows.Next() {
		var row DirectCostRow
		var period string
		if err := rows.Scan(&period, &row.Project, &row.Costs.Labor, &row.Costs.LaborHours,
			&row.Costs.Subcontract, &row.Costs.ODC, &row.Costs.Travel); err != nil {
			return nil, fmt.Errorf("forecast: scan direct costs: %w", err)
		}
		row.Period, err = shared.ParsePeriod(period)
		if err != nil {
			return nil, fmt.Errorf("forecast: direct cost period: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *repository) loadEvents(ctx context.Context) ([]ScenarioEvent, error) {
	rows, err := r.pool.Query(ctx, `SELECT scenario, COALESCE(event_type, ''), COALESCE(project, ''),
		effective_period, payload, COALESCE(notes, ''), source_row
		FROM scenario_events ORDER BY effective_period, source_row`)
	if err != nil {
		return nil, fmt.Errorf("forecast: load events: %w", err)
	}
	defer rows.Close()

	var out []ScenarioEvent
	for rows.Next() {
		var ev ScenarioEvent
		var period string
		var payload []byte
		if err := rows.Scan(&ev.Scenario, &ev.Type, &ev.Project, &period, &payload, &ev.Notes, &ev.SourceRow); err != nil {
			return nil, fmt.Errorf("forecast: scan event: %w", err)
		}
		ev.Effective, err = shared.ParsePeriod(period)
		if err != nil {
			return nil, fmt.Errorf("forecast: event period: %w", err)
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &ev.Deltas); err != nil {
				return nil, fmt.Errorf("forecast: event payload: %w", err)
			}
		}
		if ev.Scenario == "" {
			ev.Scenario = DefaultScenario
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (r *repository) LoadPoolGroups(ctx context.Context) ([]PoolGroup, error) {
	rows, err := r.pool.Query(ctx, `SELECT name, base_category, cascade_order
		FROM pool_groups ORDER BY cascade_order`)
	if err != nil {
		return nil, fmt.Errorf("forecast: load pool groups: %w", err)
	}
	defer rows.Close()

	var out []PoolGroup
	for rows.Next() {
		var g PoolGroup
		var base string
		if err := rows.Scan(&g.Name, &base, &g.CascadeOrder); err != nil {
			return nil, fmt.Errorf("forecast: scan pool group: %w", err)
		}
		g.Base, err = ParseBaseCategory(base)
		if err != nil {
			return nil, fmt.Errorf("forecast: pool group %s: %w", g.Name, err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// ReplaceTable swaps the full contents of a staging table inside one
// transaction using the Postgres binary copy protocol. Malformed rows are
// excluded by the normalizer and reported as warnings; valid rows load.
func (r *repository) ReplaceTable(ctx context.Context, table RawTable) (int64, []Warning, error) {
	layout, ok := tableColumns[table.Name]
	if !ok {
		return 0, nil, fmt.Errorf("forecast: unknown import table %q", table.Name)
	}

	inputs, warnings, err := normalizeSingle(table)
	if err != nil {
		return 0, nil, err
	}

	copyRows, err := copySource(table.Name, inputs)
	if err != nil {
		return 0, nil, err
	}

	var n int64
	err = db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM `+layout.relation); err != nil {
			return fmt.Errorf("forecast: truncate %s: %w", layout.relation, err)
		}
		n, err = tx.CopyFrom(ctx, pgx.Identifier{layout.relation}, layout.columns, pgx.CopyFromRows(copyRows))
		if err != nil {
			return fmt.Errorf("forecast: copy into %s: %w", layout.relation, mapPgError(err))
		}
		return nil
	})
	if err != nil {
		return 0, nil, err
	}
	return n, warnings, nil
}

// normalizeSingle validates one staged table through the regular normalizer
// so the database never holds rows the pipeline would reject as malformed.
func normalizeSingle(table RawTable) (Inputs, []Warning, error) {
	raw := RawInputs{
		Ledger:      RawTable{Name: TableLedger, Header: []string{"Period", "Account", "Amount"}},
		AccountMap:  RawTable{Name: TableAccountMap, Header: []string{"Account", "Pool"}},
		DirectCosts: RawTable{Name: TableDirectCosts, Header: []string{"Period", "Project"}},
		Events:      RawTable{Name: TableEvents},
	}
	slot, ok := raw.TableByName(table.Name)
	if !ok {
		return Inputs{}, nil, fmt.Errorf("forecast: unknown import table %q", table.Name)
	}
	*slot = table
	return NormalizeInputs(raw)
}

func copySource(name string, inputs Inputs) ([][]interface{}, error) {
	var rows [][]interface{}
	switch name {
	case TableLedger:
		for _, row := range inputs.Ledger {
			rows = append(rows, []interface{}{row.Period.String(), row.Account, row.Amount, row.Entity})
		}
	case TableAccountMap:
		for _, m := range inputs.Mappings {
			rows = append(rows, []interface{}{m.Account, m.PoolName, string(m.Base), m.IsUnallowable, m.Notes})
		}
	case TableDirectCosts:
		for _, row := range inputs.DirectCosts {
			rows = append(rows, []interface{}{row.Period.String(), row.Project,
				row.Costs.Labor, row.Costs.LaborHours, row.Costs.Subcontract, row.Costs.ODC, row.Costs.Travel})
		}
	case TableEvents:
		for _, ev := range inputs.Events {
			payload, err := json.Marshal(ev.Deltas)
			if err != nil {
				return nil, fmt.Errorf("forecast: marshal event payload: %w", err)
			}
			rows = append(rows, []interface{}{ev.Scenario, ev.Type, ev.Project,
				ev.Effective.String(), payload, ev.Notes, ev.SourceRow})
		}
	default:
		return nil, fmt.Errorf("forecast: unknown import table %q", name)
	}
	return rows, nil
}

func (r *repository) InsertRun(ctx context.Context, run RunRecord) error {
	params, err := json.Marshal(run.Params)
	if err != nil {
		return fmt.Errorf("forecast: marshal run params: %w", err)
	}
	assumptions, err := json.Marshal(run.Assumption)
	if err != nil {
		return fmt.Errorf("forecast: marshal run assumptions: %w", err)
	}
	_, err = r.pool.Exec(ctx, `INSERT INTO forecast_runs
		(id, scenario, params, warnings, periods, finished_at, assumptions)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		run.ID, run.Scenario, params, run.Warnings, run.Periods, run.FinishedAt, assumptions)
	if err != nil {
		return fmt.Errorf("forecast: insert run: %w", mapPgError(err))
	}
	return nil
}

func (r *repository) GetRun(ctx context.Context, id uuid.UUID) (RunRecord, error) {
	var run RunRecord
	var params, assumptions []byte
	err := r.pool.QueryRow(ctx, `SELECT id, scenario, params, warnings, periods, finished_at, assumptions
		FROM forecast_runs WHERE id = $1`, id).
		Scan(&run.ID, &run.Scenario, &params, &run.Warnings, &run.Periods, &run.FinishedAt, &assumptions)
	if errors.Is(err, pgx.ErrNoRows) {
		return RunRecord{}, ErrRunNotFound
	}
	if err != nil {
		return RunRecord{}, fmt.Errorf("forecast: get run: %w", err)
	}
	if err := json.Unmarshal(params, &run.Params); err != nil {
		return RunRecord{}, fmt.Errorf("forecast: run params: %w", err)
	}
	if err := json.Unmarshal(assumptions, &run.Assumption); err != nil {
		return RunRecord{}, fmt.Errorf("forecast: run assumptions: %w", err)
	}
	return run, nil
}

func (r *repository) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `SELECT id, scenario, params, warnings, periods, finished_at, assumptions
		FROM forecast_runs ORDER BY finished_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("forecast: list runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var run RunRecord
		var params, assumptions []byte
		if err := rows.Scan(&run.ID, &run.Scenario, &params, &run.Warnings, &run.Periods, &run.FinishedAt, &assumptions); err != nil {
			return nil, fmt.Errorf("forecast: scan run: %w", err)
		}
		if err := json.Unmarshal(params, &run.Params); err != nil {
			return nil, fmt.Errorf("forecast: run params: %w", err)
		}
		if err := json.Unmarshal(assumptions, &run.Assumption); err != nil {
			return nil, fmt.Errorf("forecast: run assumptions: %w", err)
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

// mapPgError surfaces constraint names on Postgres errors so callers can log
// something actionable instead of a bare SQLSTATE.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.ConstraintName != "" {
		return fmt.Errorf("%s (constraint %s)", pgErr.Message, pgErr.ConstraintName)
	}
	return err
}
