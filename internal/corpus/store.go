// Package corpus persists the ir-engine's saved programs in PostgreSQL: one
// row per program, with enough metadata (instruction count, compiled size,
// the mutator that produced it) to drive corpus inspection without
// recompiling or re-decoding every entry on every request.
package corpus

import (
	"context"
	_ "embed"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// ProgramRecord is one saved corpus entry: the compiled-form stats a caller
// needs to browse the corpus, plus the program's binary encoding
// (internal/ir/codec.EncodeBinary output) for on-demand decoding.
type ProgramRecord struct {
	ID               uuid.UUID
	ContextNodes     int
	ContextConns     int
	ContextTimestamp uint64
	InstructionCount int
	CompiledSize     int
	LastMutation     string
	Program          []byte
	CreatedAt        time.Time
}

// Store is the pgx-backed corpus metadata store.
type Store struct {
	pool *pgxpool.Pool
}

// Connect opens the connection pool to PostgreSQL using pgx.
func Connect(connStr string) (*Store, error) {
	pool, err := pgxpool.New(context.Background(), connStr)
	if err != nil {
		return nil, fmt.Errorf("corpus: unable to connect to database: %w", err)
	}
	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("corpus: ping failed: %w", err)
	}
	log.Println("corpus: connected to PostgreSQL")
	return &Store{pool: pool}, nil
}

// Close gracefully closes the connection pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InitSchema applies the embedded schema to the configured database.
func (s *Store) InitSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("corpus: failed to apply schema: %w", err)
	}
	log.Println("corpus: schema initialized")
	return nil
}

// SaveProgram inserts or replaces a corpus entry. Callers generate the ID
// once (google/uuid), so resaving after a minimization round updates the
// same row rather than leaking a duplicate.
func (s *Store) SaveProgram(ctx context.Context, rec ProgramRecord) error {
	sql := `
		INSERT INTO corpus_programs
			(id, context_nodes, context_conns, context_ts, instruction_count, compiled_size, last_mutation, program)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			context_nodes = EXCLUDED.context_nodes,
			context_conns = EXCLUDED.context_conns,
			context_ts = EXCLUDED.context_ts,
			instruction_count = EXCLUDED.instruction_count,
			compiled_size = EXCLUDED.compiled_size,
			last_mutation = EXCLUDED.last_mutation,
			program = EXCLUDED.program;
	`
	_, err := s.pool.Exec(ctx, sql,
		rec.ID, rec.ContextNodes, rec.ContextConns, int64(rec.ContextTimestamp),
		rec.InstructionCount, rec.CompiledSize, rec.LastMutation, rec.Program)
	if err != nil {
		return fmt.Errorf("corpus: failed to save program %s: %w", rec.ID, err)
	}
	return nil
}

// GetProgram fetches a single corpus entry by id.
func (s *Store) GetProgram(ctx context.Context, id uuid.UUID) (*ProgramRecord, error) {
	sql := `
		SELECT id, context_nodes, context_conns, context_ts, instruction_count, compiled_size, last_mutation, program, created_at
		FROM corpus_programs WHERE id = $1;
	`
	var rec ProgramRecord
	var ts int64
	err := s.pool.QueryRow(ctx, sql, id).Scan(
		&rec.ID, &rec.ContextNodes, &rec.ContextConns, &ts,
		&rec.InstructionCount, &rec.CompiledSize, &rec.LastMutation, &rec.Program, &rec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("corpus: failed to fetch program %s: %w", id, err)
	}
	rec.ContextTimestamp = uint64(ts)
	return &rec, nil
}

// ListPrograms returns a page of corpus entries ordered newest-first, plus
// the total row count for pagination.
func (s *Store) ListPrograms(ctx context.Context, page, limit int) ([]ProgramRecord, int, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * limit

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM corpus_programs`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("corpus: failed to count programs: %w", err)
	}

	sql := `
		SELECT id, context_nodes, context_conns, context_ts, instruction_count, compiled_size, last_mutation, created_at
		FROM corpus_programs
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2;
	`
	rows, err := s.pool.Query(ctx, sql, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("corpus: failed to list programs: %w", err)
	}
	defer rows.Close()

	var out []ProgramRecord
	for rows.Next() {
		var rec ProgramRecord
		var ts int64
		if err := rows.Scan(&rec.ID, &rec.ContextNodes, &rec.ContextConns, &ts,
			&rec.InstructionCount, &rec.CompiledSize, &rec.LastMutation, &rec.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("corpus: failed to scan program row: %w", err)
		}
		rec.ContextTimestamp = uint64(ts)
		out = append(out, rec)
	}
	if out == nil {
		out = []ProgramRecord{}
	}
	return out, total, nil
}

// DeleteProgram removes a corpus entry, e.g. once a minimization round
// replaces it with a strictly smaller saved program under a new ID.
func (s *Store) DeleteProgram(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM corpus_programs WHERE id = $1;`, id)
	if err != nil {
		return fmt.Errorf("corpus: failed to delete program %s: %w", id, err)
	}
	return nil
}

// GetPool exposes the connection pool for callers that need raw access
// (e.g. a future batch importer).
func (s *Store) GetPool() *pgxpool.Pool {
	return s.pool
}
