package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"roadsim/internal/graph"
	"roadsim/internal/logging"
	"roadsim/internal/planner"
	"roadsim/internal/types"
)

// Postgres reads the PostGIS road tables (node, edge, width, pair) and writes
// results into its own tables. Geometries use SRID 6668.
type Postgres struct {
	pool *pgxpool.Pool
	log  logging.Logger
}

func OpenPostgres(ctx context.Context, databaseURL string, log logging.Logger) (*Postgres, error) {
	if log == nil {
		log = logging.Noop()
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info(ctx, "connected to postgres")
	return &Postgres{pool: pool, log: log}, nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// EnsureSink creates the result tables. The road tables belong to the ETL.
func (p *Postgres) EnsureSink(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sim_run (
			run_id UUID PRIMARY KEY,
			kind TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS agent (
			run_id UUID NOT NULL REFERENCES sim_run (run_id),
			tick INTEGER NOT NULL,
			agent_id INTEGER NOT NULL,
			geom Geometry(Point, 6668) NOT NULL,
			PRIMARY KEY (run_id, tick, agent_id)
		)`,
		`CREATE TABLE IF NOT EXISTS path (
			run_id UUID NOT NULL REFERENCES sim_run (run_id),
			path_id INTEGER NOT NULL,
			geom Geometry(LineString, 6668) NOT NULL,
			PRIMARY KEY (run_id, path_id)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create result tables: %w", err)
		}
	}
	return nil
}

func (p *Postgres) LoadNodes(ctx context.Context) ([]graph.NodeRecord, error) {
	rows, err := p.pool.Query(ctx, "SELECT id, ST_X(geom), ST_Y(geom) FROM node ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query nodes: %w", err)
	}
	defer rows.Close()

	nodes := []graph.NodeRecord{}
	for rows.Next() {
		var n graph.NodeRecord
		if err := rows.Scan(&n.Id, &n.Lon, &n.Lat); err != nil {
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

func (p *Postgres) LoadEdges(ctx context.Context) ([]graph.EdgeRecord, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT e.id, e.n1, e.n2, e.distance, w.width
		FROM edge e
		LEFT JOIN width w ON e.id = w.id
		ORDER BY e.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}
	defer rows.Close()

	edges := []graph.EdgeRecord{}
	for rows.Next() {
		var e graph.EdgeRecord
		if err := rows.Scan(&e.Id, &e.N1, &e.N2, &e.Distance, &e.Width); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

func (p *Postgres) LoadPairs(ctx context.Context) ([]planner.ODPair, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id,
			ST_X(ST_StartPoint(geom)), ST_Y(ST_StartPoint(geom)),
			ST_X(ST_EndPoint(geom)), ST_Y(ST_EndPoint(geom))
		FROM pair
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query pairs: %w", err)
	}
	defer rows.Close()

	pairs := []planner.ODPair{}
	for rows.Next() {
		var pair planner.ODPair
		if err := rows.Scan(&pair.ID, &pair.Origin[0], &pair.Origin[1], &pair.Destination[0], &pair.Destination[1]); err != nil {
			return nil, fmt.Errorf("failed to scan pair: %w", err)
		}
		pairs = append(pairs, pair)
	}
	return pairs, rows.Err()
}

func (p *Postgres) CreateRun(ctx context.Context, kind string) (string, error) {
	runID := uuid.New()
	if _, err := p.pool.Exec(ctx, "INSERT INTO sim_run (run_id, kind) VALUES ($1, $2)", runID, kind); err != nil {
		return "", fmt.Errorf("failed to create run: %w", err)
	}
	return runID.String(), nil
}

func (p *Postgres) InsertAgentPositions(ctx context.Context, runID string, tick int, positions []types.AgentPosition) error {
	ids := make([]int32, len(positions))
	xs := make([]float64, len(positions))
	ys := make([]float64, len(positions))
	for i, pos := range positions {
		ids[i] = int32(pos.AgentID)
		xs[i] = pos.Lon
		ys[i] = pos.Lat
	}

	_, err := p.pool.Exec(ctx, `
		INSERT INTO agent (run_id, tick, agent_id, geom)
		SELECT $1, $2, a, ST_SetSRID(ST_Point(x, y), 6668)
		FROM unnest($3::int[], $4::float8[], $5::float8[]) AS _(a, x, y)`,
		runID, tick, ids, xs, ys)
	if err != nil {
		return fmt.Errorf("failed to insert agent positions: %w", err)
	}
	return nil
}

func (p *Postgres) InsertPaths(ctx context.Context, runID string, paths []orb.LineString) error {
	batch := &pgx.Batch{}
	for i, ls := range paths {
		data, err := geojson.NewGeometry(ls).MarshalJSON()
		if err != nil {
			return fmt.Errorf("failed to encode path %d: %w", i, err)
		}
		batch.Queue(
			"INSERT INTO path (run_id, path_id, geom) VALUES ($1, $2, ST_SetSRID(ST_GeomFromGeoJSON($3), 6668))",
			runID, i, string(data))
	}

	results := p.pool.SendBatch(ctx, batch)
	defer results.Close()
	for i := range paths {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert path %d: %w", i, err)
		}
	}
	return nil
}
