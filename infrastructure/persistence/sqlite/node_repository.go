// Package sqlite stores nodes in an embedded SQLite database, one row per
// node with the child id list kept as a JSON array.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"nodegraph/application/ports"
	"nodegraph/domain/core/entities"
	"nodegraph/domain/core/valueobjects"
	pkgerrors "nodegraph/pkg/errors"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

var _ ports.NodeStore = (*NodeRepository)(nil)

// SQLite's default host parameter limit is 999
const maxQueryParams = 500

const selectColumns = `SELECT id, name, type, description, children FROM nodes`

// NodeRepository implements NodeStore on SQLite
type NodeRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens (or creates) the database at path with WAL mode and brings the
// schema up to date
func Open(path string, logger *zap.Logger) (*NodeRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// one writer at a time; this also keeps read-modify-write appends serialized
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if err := migrate(context.Background(), db, logger); err != nil {
		db.Close()
		return nil, err
	}

	return NewNodeRepository(db, logger), nil
}

// NewNodeRepository wraps an open database that already carries the schema
func NewNodeRepository(db *sql.DB, logger *zap.Logger) *NodeRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NodeRepository{db: db, logger: logger}
}

// Close closes the database connection
func (r *NodeRepository) Close() error {
	return r.db.Close()
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func encodeChildren(children []valueobjects.NodeID) (string, error) {
	data, err := json.Marshal(valueobjects.NodeIDStrings(children))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanNode(row rowScanner) (*entities.Node, error) {
	var id, name, nodeType, description, childrenJSON string
	if err := row.Scan(&id, &name, &nodeType, &description, &childrenJSON); err != nil {
		return nil, err
	}

	nodeID, err := valueobjects.NewNodeIDFromString(id)
	if err != nil {
		return nil, fmt.Errorf("invalid node id %q: %w", id, err)
	}
	var raw []string
	if err := json.Unmarshal([]byte(childrenJSON), &raw); err != nil {
		return nil, fmt.Errorf("invalid children of node %s: %w", id, err)
	}
	children, err := valueobjects.NodeIDsFromStrings(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid child id on node %s: %w", id, err)
	}

	fields := valueobjects.ReconstructNodeFields(name, nodeType, description)
	return entities.ReconstructNode(nodeID, fields, children), nil
}

// Create saves a new node under a fresh id
func (r *NodeRepository) Create(ctx context.Context, fields valueobjects.NodeFields, children []valueobjects.NodeID) (*entities.Node, error) {
	node := entities.ReconstructNode(valueobjects.NewNodeID(), fields, children)

	encoded, err := encodeChildren(node.Children())
	if err != nil {
		return nil, pkgerrors.NewStoreError("encode children", err)
	}

	ts := now()
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO nodes (id, name, type, description, children, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		node.ID().String(), node.Name(), node.Type(), node.Description(), encoded, ts, ts)
	if err != nil {
		r.logger.Error("Failed to insert node", zap.Error(err), zap.String("nodeID", node.ID().String()))
		return nil, pkgerrors.NewStoreError("insert node", err)
	}
	return node, nil
}

// Update replaces the fields and children of an existing node
func (r *NodeRepository) Update(ctx context.Context, node *entities.Node) error {
	encoded, err := encodeChildren(node.Children())
	if err != nil {
		return pkgerrors.NewStoreError("encode children", err)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE nodes SET name = ?, type = ?, description = ?, children = ?, updated_at = ? WHERE id = ?`,
		node.Name(), node.Type(), node.Description(), encoded, now(), node.ID().String())
	if err != nil {
		return pkgerrors.NewStoreError("update node", err)
	}
	return requireAffected(res, "update node")
}

func requireAffected(res sql.Result, operation string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return pkgerrors.NewStoreError(operation, err)
	}
	if n == 0 {
		return pkgerrors.NewNotFoundError("node")
	}
	return nil
}

// FindByID retrieves a node by id
func (r *NodeRepository) FindByID(ctx context.Context, id valueobjects.NodeID) (*entities.Node, error) {
	row := r.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id.String())
	node, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.NewNotFoundError("node")
	}
	if err != nil {
		return nil, pkgerrors.NewStoreError("select node", err)
	}
	return node, nil
}

// FindByIDs retrieves the existing nodes among ids in the order of ids
func (r *NodeRepository) FindByIDs(ctx context.Context, ids []valueobjects.NodeID) ([]*entities.Node, error) {
	found := make(map[string]*entities.Node, len(ids))

	for start := 0; start < len(ids); start += maxQueryParams {
		end := start + maxQueryParams
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]

		args := make([]interface{}, len(chunk))
		for i, id := range chunk {
			args[i] = id.String()
		}
		query := selectColumns + ` WHERE id IN (?` + strings.Repeat(", ?", len(chunk)-1) + `)`

		nodes, err := r.query(ctx, "select nodes", query, args...)
		if err != nil {
			return nil, err
		}
		for _, node := range nodes {
			found[node.ID().String()] = node
		}
	}

	result := make([]*entities.Node, 0, len(ids))
	for _, id := range ids {
		if node, ok := found[id.String()]; ok {
			result = append(result, node)
		}
	}
	return result, nil
}

// FindByName retrieves nodes with an exact name match
func (r *NodeRepository) FindByName(ctx context.Context, name string) ([]*entities.Node, error) {
	return r.query(ctx, "select by name", selectColumns+` WHERE name = ? ORDER BY seq`, name)
}

// FindByType retrieves nodes with an exact type match
func (r *NodeRepository) FindByType(ctx context.Context, nodeType string) ([]*entities.Node, error) {
	return r.query(ctx, "select by type", selectColumns+` WHERE type = ? ORDER BY seq`, nodeType)
}

// List retrieves all nodes in insertion order
func (r *NodeRepository) List(ctx context.Context) ([]*entities.Node, error) {
	return r.query(ctx, "select nodes", selectColumns+` ORDER BY seq`)
}

func (r *NodeRepository) query(ctx context.Context, operation, query string, args ...interface{}) ([]*entities.Node, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, pkgerrors.NewStoreError(operation, err)
	}
	defer rows.Close()

	nodes := make([]*entities.Node, 0)
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, pkgerrors.NewStoreError(operation, err)
		}
		nodes = append(nodes, node)
	}
	if err := rows.Err(); err != nil {
		return nil, pkgerrors.NewStoreError(operation, err)
	}
	return nodes, nil
}

// DeleteByID removes a node
func (r *NodeRepository) DeleteByID(ctx context.Context, id valueobjects.NodeID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM nodes WHERE id = ?`, id.String())
	if err != nil {
		return pkgerrors.NewStoreError("delete node", err)
	}
	return requireAffected(res, "delete node")
}

// AppendChildren appends child ids to a parent inside one transaction
func (r *NodeRepository) AppendChildren(ctx context.Context, parentID valueobjects.NodeID, childIDs []valueobjects.NodeID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return pkgerrors.NewStoreError("begin transaction", err)
	}
	defer tx.Rollback()

	parent, err := scanNode(tx.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, parentID.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return pkgerrors.NewNotFoundError("node")
	}
	if err != nil {
		return pkgerrors.NewStoreError("select node", err)
	}

	encoded, err := encodeChildren(append(parent.Children(), childIDs...))
	if err != nil {
		return pkgerrors.NewStoreError("encode children", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE nodes SET children = ?, updated_at = ? WHERE id = ?`,
		encoded, now(), parentID.String()); err != nil {
		return pkgerrors.NewStoreError("append children", err)
	}

	if err := tx.Commit(); err != nil {
		return pkgerrors.NewStoreError("commit", err)
	}
	return nil
}

// DeleteAll removes every node
func (r *NodeRepository) DeleteAll(ctx context.Context) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM nodes`)
	if err != nil {
		return 0, pkgerrors.NewStoreError("delete nodes", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, pkgerrors.NewStoreError("delete nodes", err)
	}
	return int(n), nil
}

// Ping checks that the database is reachable
func (r *NodeRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return pkgerrors.NewStoreError("ping", err)
	}
	return nil
}
