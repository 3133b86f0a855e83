package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/sema-cli/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/sema-cli/internal/core/domain"
	"github.com/custodia-labs/sema-cli/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.ChunkStore = (*Store)(nil)

// Store is the SQLite-backed chunk store. One row per chunk in a flat
// schema: note identity, chunk text, embedding blob and cluster
// assignment.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store in the specified data directory.
// If dataDir is empty, defaults to ~/.sema/data/chunks.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".sema", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "chunks.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// Add inserts or replaces chunk rows.
func (s *Store) Add(ctx context.Context, chunks []domain.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, title, created_at, chunk_index, chunk_total, content, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(title, created_at, chunk_index) DO UPDATE SET
			id = excluded.id,
			chunk_total = excluded.chunk_total,
			content = excluded.content,
			embedding = excluded.embedding
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		embeddingBlob := float32SliceToBytes(chunk.Embedding)

		if _, err := stmt.ExecContext(ctx, chunk.ID, chunk.NoteKey.Title,
			chunk.NoteKey.CreatedAt.UnixMilli(), chunk.Index, chunk.Total,
			chunk.Text, embeddingBlob); err != nil {
			return fmt.Errorf("saving chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Delete removes rows matching the filter.
func (s *Store) Delete(ctx context.Context, f driven.Filter) (int, error) {
	where, args := buildWhere(f)

	res, err := s.db.ExecContext(ctx, "DELETE FROM chunks"+where, args...)
	if err != nil {
		return 0, fmt.Errorf("deleting chunks: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted rows: %w", err)
	}
	return int(n), nil
}

// UpdateCluster writes a cluster assignment onto rows matching the filter.
func (s *Store) UpdateCluster(ctx context.Context, f driven.Filter, a driven.ClusterAssignment) (int, error) {
	where, args := buildWhere(f)
	args = append([]any{a.ID, a.Label, a.Summary}, args...)

	res, err := s.db.ExecContext(ctx, `
		UPDATE chunks SET cluster_id = ?, cluster_label = ?, cluster_summary = ?`+where, args...)
	if err != nil {
		return 0, fmt.Errorf("updating cluster assignment: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting updated rows: %w", err)
	}
	return int(n), nil
}

// Count reports the number of rows matching the filter.
func (s *Store) Count(ctx context.Context, f driven.Filter) (int, error) {
	where, args := buildWhere(f)

	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks"+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return count, nil
}

// Scan returns the chunks matching the filter, ordered by note and index.
func (s *Store) Scan(ctx context.Context, f driven.Filter) ([]domain.Chunk, error) {
	where, args := buildWhere(f)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, created_at, chunk_index, chunk_total, content, embedding
		FROM chunks`+where+`
		ORDER BY title, created_at, chunk_index
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	return chunks, nil
}

// SearchVector finds the k most similar chunks to the query vector by
// cosine similarity. The scan is brute force over stored blobs; note
// collections are small enough that an approximate index is not worth
// its complexity here.
func (s *Store) SearchVector(ctx context.Context, query []float32, k int) ([]driven.ChunkHit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, created_at, chunk_index, chunk_total, content, embedding,
		       cluster_id, cluster_label, cluster_summary
		FROM chunks WHERE embedding IS NOT NULL
	`)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var hits []driven.ChunkHit
	for rows.Next() {
		chunk, assignment, err := scanChunkWithCluster(rows)
		if err != nil {
			return nil, err
		}
		if len(chunk.Embedding) != len(query) {
			continue
		}

		hits = append(hits, driven.ChunkHit{
			Chunk:   *chunk,
			Cluster: assignment,
			Score:   cosineSimilarity(query, chunk.Embedding),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// SearchText finds chunks matching the full-text query via FTS5.
func (s *Store) SearchText(ctx context.Context, query string, limit int) ([]driven.ChunkHit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.title, c.created_at, c.chunk_index, c.chunk_total, c.content, c.embedding,
		       c.cluster_id, c.cluster_label, c.cluster_summary,
		       bm25(chunks_fts) AS rank
		FROM chunks_fts
		JOIN chunks c ON c.rowid = chunks_fts.rowid
		WHERE chunks_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("full-text query: %w", err)
	}
	defer rows.Close()

	var hits []driven.ChunkHit //nolint:prealloc // size unknown from query
	for rows.Next() {
		var chunk domain.Chunk
		var createdAt int64
		var embeddingBlob []byte
		var clusterID sql.NullInt64
		var clusterLabel, clusterSummary sql.NullString
		var rank float64

		if err := rows.Scan(&chunk.ID, &chunk.NoteKey.Title, &createdAt,
			&chunk.Index, &chunk.Total, &chunk.Text, &embeddingBlob,
			&clusterID, &clusterLabel, &clusterSummary, &rank); err != nil {
			return nil, fmt.Errorf("scanning hit: %w", err)
		}

		chunk.NoteKey.CreatedAt = time.UnixMilli(createdAt).UTC()
		chunk.Embedding = bytesToFloat32Slice(embeddingBlob)

		hit := driven.ChunkHit{Chunk: chunk, Score: -rank}
		if clusterID.Valid {
			hit.Cluster = &driven.ClusterAssignment{
				ID:      int(clusterID.Int64),
				Label:   clusterLabel.String,
				Summary: clusterSummary.String,
			}
		}
		hits = append(hits, hit)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating hits: %w", err)
	}

	return hits, nil
}

// Clusters reconstructs the stored clusters from row assignments,
// sorted by id with the outlier group last.
func (s *Store) Clusters(ctx context.Context) ([]domain.Cluster, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cluster_id, cluster_label, cluster_summary, title, created_at
		FROM chunks
		WHERE cluster_id IS NOT NULL
		GROUP BY title, created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("querying clusters: %w", err)
	}
	defer rows.Close()

	type clusterMeta struct {
		label   string
		summary string
	}
	metas := make(map[int]clusterMeta)
	members := make(map[int][]domain.NoteKey)

	for rows.Next() {
		var id int
		var label, summary sql.NullString
		var title string
		var createdAt int64
		if err := rows.Scan(&id, &label, &summary, &title, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning cluster row: %w", err)
		}

		metas[id] = clusterMeta{label: label.String, summary: summary.String}
		members[id] = append(members[id], domain.NoteKey{
			Title:     title,
			CreatedAt: time.UnixMilli(createdAt).UTC(),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating clusters: %w", err)
	}

	ids := make([]int, 0, len(members))
	hasOutliers := false
	for id := range members {
		if id == domain.Outlier {
			hasOutliers = true
			continue
		}
		ids = append(ids, id)
	}
	sort.Ints(ids)
	if hasOutliers {
		ids = append(ids, domain.Outlier)
	}

	clusters := make([]domain.Cluster, 0, len(ids))
	for _, id := range ids {
		clusters = append(clusters, domain.Cluster{
			ID:      id,
			Label:   metas[id].label,
			Summary: metas[id].summary,
			Members: members[id],
		})
	}
	return clusters, nil
}

// buildWhere turns a structured filter into a parameterized WHERE
// clause. Values travel as query parameters, never inside the SQL
// text, so titles with quotes are safe.
func buildWhere(f driven.Filter) (string, []any) {
	var conds []string
	var args []any

	if f.Title != "" {
		conds = append(conds, "title = ?")
		args = append(args, f.Title)
	}
	if f.CreatedAt != nil {
		conds = append(conds, "created_at = ?")
		args = append(args, f.CreatedAt.UnixMilli())
	}
	if f.ClusterID != nil {
		conds = append(conds, "cluster_id = ?")
		args = append(args, *f.ClusterID)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// scanChunk scans a chunk from *sql.Rows without cluster columns.
func scanChunk(rows *sql.Rows) (*domain.Chunk, error) {
	var chunk domain.Chunk
	var createdAt int64
	var embeddingBlob []byte

	if err := rows.Scan(&chunk.ID, &chunk.NoteKey.Title, &createdAt,
		&chunk.Index, &chunk.Total, &chunk.Text, &embeddingBlob); err != nil {
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}

	chunk.NoteKey.CreatedAt = time.UnixMilli(createdAt).UTC()
	chunk.Embedding = bytesToFloat32Slice(embeddingBlob)
	return &chunk, nil
}

// scanChunkWithCluster scans a chunk plus its cluster assignment.
func scanChunkWithCluster(rows *sql.Rows) (*domain.Chunk, *driven.ClusterAssignment, error) {
	var chunk domain.Chunk
	var createdAt int64
	var embeddingBlob []byte
	var clusterID sql.NullInt64
	var clusterLabel, clusterSummary sql.NullString

	if err := rows.Scan(&chunk.ID, &chunk.NoteKey.Title, &createdAt,
		&chunk.Index, &chunk.Total, &chunk.Text, &embeddingBlob,
		&clusterID, &clusterLabel, &clusterSummary); err != nil {
		return nil, nil, fmt.Errorf("scanning chunk: %w", err)
	}

	chunk.NoteKey.CreatedAt = time.UnixMilli(createdAt).UTC()
	chunk.Embedding = bytesToFloat32Slice(embeddingBlob)

	var assignment *driven.ClusterAssignment
	if clusterID.Valid {
		assignment = &driven.ClusterAssignment{
			ID:      int(clusterID.Int64),
			Label:   clusterLabel.String,
			Summary: clusterSummary.String,
		}
	}
	return &chunk, assignment, nil
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

// cosineSimilarity computes cosine similarity in float64.
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
