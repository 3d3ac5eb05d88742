package db

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	_ "modernc.org/sqlite"

	"roadsim/internal/graph"
	"roadsim/internal/logging"
	"roadsim/internal/planner"
	"roadsim/internal/types"
)

//go:embed schema.sql
var schemaSQL string

// SQLite wraps a single-connection SQLite database with serialized writes.
type SQLite struct {
	conn    *sql.DB
	writeMu sync.Mutex
	log     logging.Logger
}

// OpenSQLite opens path in WAL mode.
func OpenSQLite(path string, log logging.Logger) (*SQLite, error) {
	if log == nil {
		log = logging.Noop()
	}
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// one writer at a time
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(time.Hour)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			log.Warn(context.Background(), "failed to set pragma", logging.String("pragma", pragma), logging.Err(err))
		}
	}

	log.Info(context.Background(), "connected to sqlite", logging.String("path", path))
	return &SQLite{conn: conn, log: log}, nil
}

func (db *SQLite) Close() error {
	return db.conn.Close()
}

// EnsureSchema creates the tables from the embedded schema.sql.
func (db *SQLite) EnsureSchema(ctx context.Context) error {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	if _, err := db.conn.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (db *SQLite) LoadNodes(ctx context.Context) ([]graph.NodeRecord, error) {
	rows, err := db.conn.QueryContext(ctx, "SELECT id, lon, lat FROM node ORDER BY id")
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

func (db *SQLite) LoadEdges(ctx context.Context) ([]graph.EdgeRecord, error) {
	rows, err := db.conn.QueryContext(ctx, `
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
		var width sql.NullFloat64
		if err := rows.Scan(&e.Id, &e.N1, &e.N2, &e.Distance, &width); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		if width.Valid {
			w := width.Float64
			e.Width = &w
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

func (db *SQLite) LoadPairs(ctx context.Context) ([]planner.ODPair, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT id, origin_lon, origin_lat, dest_lon, dest_lat FROM pair ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query pairs: %w", err)
	}
	defer rows.Close()

	pairs := []planner.ODPair{}
	for rows.Next() {
		var p planner.ODPair
		if err := rows.Scan(&p.ID, &p.Origin[0], &p.Origin[1], &p.Destination[0], &p.Destination[1]); err != nil {
			return nil, fmt.Errorf("failed to scan pair: %w", err)
		}
		pairs = append(pairs, p)
	}
	return pairs, rows.Err()
}

// ImportRecords replaces the road network tables with the given records.
func (db *SQLite) ImportRecords(ctx context.Context, nodes []graph.NodeRecord, edges []graph.EdgeRecord, pairs []planner.ODPair) error {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{"DELETE FROM width", "DELETE FROM edge", "DELETE FROM node", "DELETE FROM pair"} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to clear tables: %w", err)
		}
	}

	for _, n := range nodes {
		if _, err := tx.ExecContext(ctx, "INSERT INTO node (id, lon, lat) VALUES (?, ?, ?)", n.Id, n.Lon, n.Lat); err != nil {
			return fmt.Errorf("failed to insert node %d: %w", n.Id, err)
		}
	}
	for _, e := range edges {
		if _, err := tx.ExecContext(ctx, "INSERT INTO edge (id, n1, n2, distance) VALUES (?, ?, ?, ?)", e.Id, e.N1, e.N2, e.Distance); err != nil {
			return fmt.Errorf("failed to insert edge %d: %w", e.Id, err)
		}
		if e.Width != nil {
			if _, err := tx.ExecContext(ctx, "INSERT INTO width (id, width) VALUES (?, ?)", e.Id, *e.Width); err != nil {
				return fmt.Errorf("failed to insert width %d: %w", e.Id, err)
			}
		}
	}
	for _, p := range pairs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO pair (id, origin_lon, origin_lat, dest_lon, dest_lat) VALUES (?, ?, ?, ?, ?)",
			p.ID, p.Origin.Lon(), p.Origin.Lat(), p.Destination.Lon(), p.Destination.Lat()); err != nil {
			return fmt.Errorf("failed to insert pair %d: %w", p.ID, err)
		}
	}
	return tx.Commit()
}

func (db *SQLite) CreateRun(ctx context.Context, kind string) (string, error) {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	runID := uuid.New().String()
	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO sim_run (run_id, kind, created_at_utc) VALUES (?, ?, ?)",
		runID, kind, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return "", fmt.Errorf("failed to create run: %w", err)
	}
	return runID, nil
}

func (db *SQLite) InsertAgentPositions(ctx context.Context, runID string, tick int, positions []types.AgentPosition) error {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO agent_position (run_id, tick, agent_id, lon, lat) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, p := range positions {
		if _, err := stmt.ExecContext(ctx, runID, tick, p.AgentID, p.Lon, p.Lat); err != nil {
			return fmt.Errorf("failed to insert agent %d: %w", p.AgentID, err)
		}
	}
	return tx.Commit()
}

func (db *SQLite) InsertPaths(ctx context.Context, runID string, paths []orb.LineString) error {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO path (run_id, path_id, geojson) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, ls := range paths {
		data, err := geojson.NewGeometry(ls).MarshalJSON()
		if err != nil {
			return fmt.Errorf("failed to encode path %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, runID, i, string(data)); err != nil {
			return fmt.Errorf("failed to insert path %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// AgentPositions returns the positions recorded for runID at tick.
func (db *SQLite) AgentPositions(ctx context.Context, runID string, tick int) ([]types.AgentPosition, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT agent_id, lon, lat FROM agent_position WHERE run_id = ? AND tick = ? ORDER BY agent_id",
		runID, tick)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	out := []types.AgentPosition{}
	for rows.Next() {
		var p types.AgentPosition
		if err := rows.Scan(&p.AgentID, &p.Lon, &p.Lat); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Paths returns the path geometries stored for runID in insertion order.
func (db *SQLite) Paths(ctx context.Context, runID string) ([]orb.LineString, error) {
	rows, err := db.conn.QueryContext(ctx, "SELECT geojson FROM path WHERE run_id = ? ORDER BY path_id", runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query paths: %w", err)
	}
	defer rows.Close()

	out := []orb.LineString{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan path: %w", err)
		}
		geom, err := geojson.UnmarshalGeometry([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("failed to decode path: %w", err)
		}
		ls, ok := geom.Geometry().(orb.LineString)
		if !ok {
			return nil, fmt.Errorf("stored path is a %s", geom.Type)
		}
		out = append(out, ls)
	}
	return out, rows.Err()
}
