// Package sqlitevec provides a SQLite-backed vector index using sqlite-vec.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/tenglaafi/tenglaafi/pkg/vector"
)

// SQLiteVecIndex implements vector.Index using SQLite with sqlite-vec.
type SQLiteVecIndex struct {
	db     *sql.DB
	logger *zap.Logger
}

// Config holds configuration for the SQLite vec index.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string

	// Dimensions is the number of dimensions for the embedding vectors.
	Dimensions uint
}

// NewSQLiteVecIndex creates a new SQLite vector index backed by sqlite-vec.
func NewSQLiteVecIndex(c Config, logger *zap.Logger) (*SQLiteVecIndex, error) {
	// enable connection to have sqlite-vec extension
	sqlite_vec.Auto()

	if c.DBPath == "" {
		return nil, fmt.Errorf("database path is required")
	}

	if c.Dimensions == 0 {
		return nil, fmt.Errorf("sqlite-vec embedding dimensions cannot be 0, must be configured")
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Verify sqlite-vec is loaded
	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite-vec not available: %w", err)
	}

	idx := &SQLiteVecIndex{db: db, logger: logger}
	if err := idx.createSchema(c.Dimensions); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("sqlite-vec index initialized",
		zap.String("db_path", c.DBPath),
		zap.Uint("dimensions", c.Dimensions),
		zap.String("vec_version", vecVersion),
	)

	return idx, nil
}

func (d *SQLiteVecIndex) createSchema(dimensions uint) error {
	// vec0 virtual tables use integer rowids, so a mapping table carries
	// the string document IDs plus the raw text and metadata JSON.
	_, err := d.db.Exec(`
		CREATE TABLE IF NOT EXISTS corpus_documents (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			doc_id TEXT NOT NULL UNIQUE,
			document TEXT NOT NULL DEFAULT '',
			metadata TEXT NOT NULL DEFAULT '{}'
		)
	`)
	if err != nil {
		return fmt.Errorf("creating documents table: %w", err)
	}

	_, err = d.db.Exec(`
		CREATE TABLE IF NOT EXISTS collection_metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("creating collection metadata table: %w", err)
	}

	createVec := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS vec_embeddings USING vec0(embedding float[%d] distance_metric=cosine)`,
		dimensions,
	)
	if _, err := d.db.Exec(createVec); err != nil {
		return fmt.Errorf("creating vec0 table: %w", err)
	}

	return nil
}

// serializeFloat32 converts a float32 slice to a little-endian byte slice
// suitable for sqlite-vec BLOB format.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// deserializeFloat32 converts a little-endian byte slice back to a float32 slice.
func deserializeFloat32(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding blob length %d: must be divisible by 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

// Upsert stores entries with their embeddings. Entries with an existing ID
// are updated in place.
func (d *SQLiteVecIndex) Upsert(ctx context.Context, entries []vector.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, entry := range entries {
		embBlob := serializeFloat32(entry.Embedding)

		metaJSON, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("marshaling metadata for entry %s: %w", entry.ID, err)
		}

		var existingRowID int64
		err = tx.QueryRowContext(ctx,
			`SELECT rowid FROM corpus_documents WHERE doc_id = ?`, entry.ID,
		).Scan(&existingRowID)

		switch err {
		case nil:
			if _, err := tx.ExecContext(ctx,
				`UPDATE corpus_documents SET document = ?, metadata = ? WHERE rowid = ?`,
				entry.Document, string(metaJSON), existingRowID,
			); err != nil {
				return fmt.Errorf("updating entry %s: %w", entry.ID, err)
			}

			// vec0 does not support UPDATE, replace via DELETE + INSERT
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM vec_embeddings WHERE rowid = ?`, existingRowID,
			); err != nil {
				return fmt.Errorf("deleting old embedding for entry %s: %w", entry.ID, err)
			}

			if _, err := tx.ExecContext(ctx,
				`INSERT INTO vec_embeddings(rowid, embedding) VALUES (?, ?)`,
				existingRowID, embBlob,
			); err != nil {
				return fmt.Errorf("re-inserting embedding for entry %s: %w", entry.ID, err)
			}
		case sql.ErrNoRows:
			result, err := tx.ExecContext(ctx,
				`INSERT INTO corpus_documents(doc_id, document, metadata) VALUES (?, ?, ?)`,
				entry.ID, entry.Document, string(metaJSON),
			)
			if err != nil {
				return fmt.Errorf("inserting entry %s: %w", entry.ID, err)
			}

			rowID, err := result.LastInsertId()
			if err != nil {
				return fmt.Errorf("getting rowid for entry %s: %w", entry.ID, err)
			}

			if _, err := tx.ExecContext(ctx,
				`INSERT INTO vec_embeddings(rowid, embedding) VALUES (?, ?)`,
				rowID, embBlob,
			); err != nil {
				return fmt.Errorf("inserting embedding for entry %s: %w", entry.ID, err)
			}
		default:
			return fmt.Errorf("checking for existing entry %s: %w", entry.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	d.logger.Debug("upserted entries to sqlite-vec",
		zap.Int("count", len(entries)),
	)

	return nil
}

// Search finds the k nearest entries to the given embedding.
func (d *SQLiteVecIndex) Search(ctx context.Context, embedding []float32, k int) ([]vector.Match, error) {
	if k <= 0 {
		k = 10
	}

	queryBlob := serializeFloat32(embedding)

	rows, err := d.db.QueryContext(ctx, `
		SELECT
			c.doc_id,
			c.document,
			c.metadata,
			ve.distance
		FROM vec_embeddings ve
		INNER JOIN corpus_documents c ON c.rowid = ve.rowid
		WHERE ve.embedding MATCH ?
			AND ve.k = ?
		ORDER BY ve.distance
	`, queryBlob, k)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	var matches []vector.Match
	for rows.Next() {
		var (
			docID    string
			document string
			metaJSON string
			distance float64
		)
		if err := rows.Scan(&docID, &document, &metaJSON, &distance); err != nil {
			return nil, fmt.Errorf("scanning query result: %w", err)
		}

		meta := map[string]string{}
		if err := json.Unmarshal([]byte(metaJSON), &meta); err != nil {
			return nil, fmt.Errorf("parsing metadata for entry %s: %w", docID, err)
		}

		matches = append(matches, vector.Match{
			Entry: vector.Entry{
				ID:       docID,
				Document: document,
				Metadata: meta,
			},
			Distance: float32(distance),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query results: %w", err)
	}

	d.logger.Debug("queried sqlite-vec",
		zap.Int("results", len(matches)),
	)

	return matches, nil
}

// Get retrieves a single entry by ID.
func (d *SQLiteVecIndex) Get(ctx context.Context, id string) (*vector.Entry, error) {
	var (
		rowID    int64
		document string
		metaJSON string
	)
	err := d.db.QueryRowContext(ctx,
		`SELECT rowid, document, metadata FROM corpus_documents WHERE doc_id = ?`, id,
	).Scan(&rowID, &document, &metaJSON)
	if err == sql.ErrNoRows {
		return nil, vector.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying entry: %w", err)
	}

	meta := map[string]string{}
	if err := json.Unmarshal([]byte(metaJSON), &meta); err != nil {
		return nil, fmt.Errorf("parsing metadata for entry %s: %w", id, err)
	}

	entry := &vector.Entry{
		ID:       id,
		Document: document,
		Metadata: meta,
	}

	var embBlob []byte
	err = d.db.QueryRowContext(ctx,
		`SELECT embedding FROM vec_embeddings WHERE rowid = ?`, rowID,
	).Scan(&embBlob)
	if err == nil && len(embBlob) > 0 {
		entry.Embedding, _ = deserializeFloat32(embBlob)
	}

	return entry, nil
}

// Count returns the number of indexed entries.
func (d *SQLiteVecIndex) Count(ctx context.Context) (int, error) {
	var count int
	if err := d.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM corpus_documents`,
	).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting entries: %w", err)
	}
	return count, nil
}

// Metadata returns the collection-level metadata map. An empty collection
// metadata table yields an empty map.
func (d *SQLiteVecIndex) Metadata(ctx context.Context) (map[string]string, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT key, value FROM collection_metadata`)
	if err != nil {
		return nil, fmt.Errorf("querying collection metadata: %w", err)
	}
	defer rows.Close()

	meta := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scanning collection metadata: %w", err)
		}
		meta[k] = v
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating collection metadata: %w", err)
	}

	return meta, nil
}

// SetMetadata replaces the collection-level metadata map.
func (d *SQLiteVecIndex) SetMetadata(ctx context.Context, meta map[string]string) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM collection_metadata`); err != nil {
		return fmt.Errorf("clearing collection metadata: %w", err)
	}

	for k, v := range meta {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO collection_metadata(key, value) VALUES (?, ?)`, k, v,
		); err != nil {
			return fmt.Errorf("writing collection metadata key %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

// Health reports whether the database is reachable.
func (d *SQLiteVecIndex) Health(ctx context.Context) bool {
	return d.db.PingContext(ctx) == nil
}

// Reset drops all entries and collection metadata.
func (d *SQLiteVecIndex) Reset(ctx context.Context) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM vec_embeddings`,
		`DELETE FROM corpus_documents`,
		`DELETE FROM collection_metadata`,
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("resetting index: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	d.logger.Warn("sqlite-vec index reset")

	return nil
}

// Close releases resources held by the index.
func (d *SQLiteVecIndex) Close() error {
	return d.db.Close()
}

var _ vector.Index = (*SQLiteVecIndex)(nil)
