package knowledge

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonathan/portfolio-research/internal/evidence"
	"github.com/jonathan/portfolio-research/internal/llm"
)

// passagesPerQuery is how many passages each search query contributes before
// cross-query merging.
const passagesPerQuery = 5

// Schema creates the knowledge-base passage table. Embeddings are stored as
// float arrays and ranked in process; corpora stay small enough that a full
// scan is fine.
const Schema = `
CREATE TABLE IF NOT EXISTS kb_passages (
	id        TEXT PRIMARY KEY,
	source    TEXT NOT NULL,
	content   TEXT NOT NULL,
	embedding REAL[] NOT NULL
);
`

// PostgresRetriever retrieves passages by embedding similarity against a
// Postgres-backed passage store.
type PostgresRetriever struct {
	pool   *pgxpool.Pool
	client llm.Client
}

// NewPostgresRetriever connects to the knowledge base and ensures its schema.
func NewPostgresRetriever(ctx context.Context, connString string, client llm.Client) (*PostgresRetriever, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to knowledge base: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping knowledge base: %w", err)
	}
	if _, err := pool.Exec(ctx, Schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ensure knowledge base schema: %w", err)
	}
	return &PostgresRetriever{pool: pool, client: client}, nil
}

// Close releases the connection pool.
func (r *PostgresRetriever) Close() {
	r.pool.Close()
}

type storedPassage struct {
	id        string
	source    string
	content   string
	embedding []float32
}

// Retrieve embeds every query, ranks stored passages by cosine similarity,
// and merges the per-query top results into one de-duplicated list. Passages
// keep the order of the queries that found them.
func (r *PostgresRetriever) Retrieve(ctx context.Context, queries []string) ([]evidence.Passage, error) {
	if len(queries) == 0 {
		return nil, nil
	}

	vectors, err := r.client.Embed(ctx, queries)
	if err != nil {
		return nil, fmt.Errorf("failed to embed search queries: %w", err)
	}

	stored, err := r.loadPassages(ctx)
	if err != nil {
		return nil, err
	}
	if len(stored) == 0 {
		log.Printf("[Knowledge] Knowledge base is empty")
		return nil, nil
	}

	seen := make(map[string]bool)
	var merged []evidence.Passage
	for _, vec := range vectors {
		for _, ranked := range rankPassages(stored, vec, passagesPerQuery) {
			if seen[ranked.id] {
				continue
			}
			seen[ranked.id] = true
			merged = append(merged, evidence.Passage{
				Source:  ranked.source,
				Content: ranked.content,
				Score:   ranked.score,
			})
		}
	}

	log.Printf("[Knowledge] Retrieved %d passages for %d queries", len(merged), len(queries))
	return merged, nil
}

// AddPassage stores a passage with its embedding, replacing any existing
// passage with the same id. Used by ingestion tooling, not the research path.
func (r *PostgresRetriever) AddPassage(ctx context.Context, id, source, content string) error {
	vectors, err := r.client.Embed(ctx, []string{content})
	if err != nil {
		return fmt.Errorf("failed to embed passage: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO kb_passages (id, source, content, embedding)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET source = $2, content = $3, embedding = $4`,
		id, source, content, vectors[0])
	if err != nil {
		return fmt.Errorf("failed to store passage: %w", err)
	}
	return nil
}

func (r *PostgresRetriever) loadPassages(ctx context.Context) ([]storedPassage, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, source, content, embedding FROM kb_passages`)
	if err != nil {
		return nil, fmt.Errorf("failed to query knowledge base: %w", err)
	}
	defer rows.Close()

	var passages []storedPassage
	for rows.Next() {
		var p storedPassage
		if err := rows.Scan(&p.id, &p.source, &p.content, &p.embedding); err != nil {
			return nil, fmt.Errorf("failed to scan passage: %w", err)
		}
		passages = append(passages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read passages: %w", err)
	}
	return passages, nil
}

type rankedPassage struct {
	id      string
	source  string
	content string
	score   float64
}

func rankPassages(stored []storedPassage, queryVec []float32, limit int) []rankedPassage {
	ranked := make([]rankedPassage, 0, len(stored))
	for _, p := range stored {
		score := cosineSimilarity(queryVec, p.embedding)
		if score <= 0 {
			continue
		}
		ranked = append(ranked, rankedPassage{
			id:      p.id,
			source:  p.source,
			content: p.content,
			score:   score,
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
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
