package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"fleetopt/internal/model"
)

const schema = `CREATE TABLE IF NOT EXISTS stop_sets (
    name         TEXT PRIMARY KEY,
    description  TEXT NOT NULL DEFAULT '',
    coordinates  JSONB NOT NULL,
    time_windows JSONB,
    demands      JSONB,
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
)`

type Postgres struct {
	db *sql.DB
}

// NewPostgres connects, creates the stop_sets table when missing and seeds
// the sample set if it is absent.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	p := &Postgres{db: db}
	if err := p.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := p.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	row, err := encodeRow(Sample())
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `INSERT INTO stop_sets (name, description, coordinates, time_windows, demands)
        VALUES ($1,$2,$3,$4,$5) ON CONFLICT (name) DO NOTHING`, row.args()...)
	if err != nil {
		return fmt.Errorf("store: seed: %w", err)
	}
	return nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *Postgres) Close() error { return p.db.Close() }

func (p *Postgres) ListStopSets(ctx context.Context) ([]model.StopSet, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT name, description, coordinates, time_windows, demands FROM stop_sets ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.StopSet{}
	for rows.Next() {
		var r stopSetRow
		if err := rows.Scan(&r.Name, &r.Description, &r.Coordinates, &r.TimeWindows, &r.Demands); err != nil {
			return nil, err
		}
		s, err := r.decode()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *Postgres) GetStopSet(ctx context.Context, name string) (model.StopSet, error) {
	var r stopSetRow
	err := p.db.QueryRowContext(ctx, `SELECT name, description, coordinates, time_windows, demands FROM stop_sets WHERE name=$1`, name).
		Scan(&r.Name, &r.Description, &r.Coordinates, &r.TimeWindows, &r.Demands)
	if errors.Is(err, sql.ErrNoRows) {
		return model.StopSet{}, ErrNotFound
	}
	if err != nil {
		return model.StopSet{}, err
	}
	return r.decode()
}

func (p *Postgres) PutStopSet(ctx context.Context, s model.StopSet) error {
	if err := Validate(s); err != nil {
		return err
	}
	row, err := encodeRow(s)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `INSERT INTO stop_sets (name, description, coordinates, time_windows, demands)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (name) DO UPDATE SET description=EXCLUDED.description, coordinates=EXCLUDED.coordinates,
            time_windows=EXCLUDED.time_windows, demands=EXCLUDED.demands, updated_at=now()`, row.args()...)
	return err
}

// stopSetRow is the column form of a stop set; the list columns are JSONB.
type stopSetRow struct {
	Name        string
	Description string
	Coordinates []byte
	TimeWindows []byte
	Demands     []byte
}

func encodeRow(s model.StopSet) (stopSetRow, error) {
	r := stopSetRow{Name: s.Name, Description: s.Description}
	var err error
	if r.Coordinates, err = json.Marshal(s.Coordinates); err != nil {
		return r, err
	}
	if r.TimeWindows, err = nullableJSON(s.TimeWindows); err != nil {
		return r, err
	}
	if r.Demands, err = nullableJSON(s.Demands); err != nil {
		return r, err
	}
	return r, nil
}

func nullableJSON[T any](v []T) ([]byte, error) {
	if len(v) == 0 {
		return nil, nil
	}
	return json.Marshal(v)
}

func (r stopSetRow) args() []any {
	return []any{r.Name, r.Description, string(r.Coordinates), jsonArg(r.TimeWindows), jsonArg(r.Demands)}
}

func jsonArg(b []byte) any {
	if b == nil {
		return nil
	}
	return string(b)
}

func (r stopSetRow) decode() (model.StopSet, error) {
	s := model.StopSet{Name: r.Name, Description: r.Description}
	if err := json.Unmarshal(r.Coordinates, &s.Coordinates); err != nil {
		return s, fmt.Errorf("store: %s coordinates: %w", r.Name, err)
	}
	if len(r.TimeWindows) > 0 {
		if err := json.Unmarshal(r.TimeWindows, &s.TimeWindows); err != nil {
			return s, fmt.Errorf("store: %s time_windows: %w", r.Name, err)
		}
	}
	if len(r.Demands) > 0 {
		if err := json.Unmarshal(r.Demands, &s.Demands); err != nil {
			return s, fmt.Errorf("store: %s demands: %w", r.Name, err)
		}
	}
	return s, nil
}
