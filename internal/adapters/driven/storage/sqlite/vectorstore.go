package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/corpus-ai/corpus/internal/core/domain"
	"github.com/corpus-ai/corpus/internal/core/ports/driven"
	"github.com/corpus-ai/corpus/internal/quantize"
)

// vectorStore implements driven.VectorStore.
type vectorStore struct {
	store *Store
}

var _ driven.VectorStore = (*vectorStore)(nil)

// StoreEmbeddings bulk-inserts chunks and their embeddings in one
// transaction. Vectors are quantised per the store's compression
// setting before writing.
func (s *vectorStore) StoreEmbeddings(ctx context.Context, chunks []domain.Chunk, embeddings []domain.Embedding) (int, error) {
	if len(chunks) != len(embeddings) {
		return 0, fmt.Errorf("%w: %d chunks but %d embeddings", domain.ErrInvalidInput, len(chunks), len(embeddings))
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	dims := len(embeddings[0].Vector)
	for i := range embeddings {
		if len(embeddings[i].Vector) != dims {
			return 0, fmt.Errorf("%w: embedding %d has %d dimensions, expected %d",
				domain.ErrDimensionMismatch, i, len(embeddings[i].Vector), dims)
		}
	}

	ownerID := chunks[0].OwnerID
	existing, err := s.OwnerDimensions(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	if existing != 0 && existing != dims {
		return 0, fmt.Errorf("%w: owner %s stores %d-dimensional vectors, got %d",
			domain.ErrDimensionMismatch, ownerID, existing, dims)
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: beginning transaction: %v", domain.ErrStorage, err)
	}
	defer tx.Rollback() //nolint:errcheck

	chunkStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, document_id, owner_id, content, position, start_char, end_char)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("%w: preparing chunk insert: %v", domain.ErrStorage, err)
	}
	defer chunkStmt.Close()

	embStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO embeddings (chunk_id, document_id, owner_id, vector, dimensions, compression, comp_min, comp_max, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("%w: preparing embedding insert: %v", domain.ErrStorage, err)
	}
	defer embStmt.Close()

	now := time.Now().UTC()
	for i := range chunks {
		c := chunks[i]
		if _, err := chunkStmt.ExecContext(ctx, c.ID, c.DocumentID, c.OwnerID,
			c.Content, c.Index, c.StartChar, c.EndChar); err != nil {
			return 0, fmt.Errorf("%w: inserting chunk %s: %v", domain.ErrStorage, c.ID, err)
		}

		blob, method, min, max, err := s.encodeVector(embeddings[i].Vector)
		if err != nil {
			return 0, err
		}

		var compression any
		var compMin, compMax any
		if method != quantize.MethodNone {
			compression = string(method)
			compMin = min
			compMax = max
		}

		if _, err := embStmt.ExecContext(ctx, c.ID, c.DocumentID, c.OwnerID,
			blob, dims, compression, compMin, compMax, now); err != nil {
			return 0, fmt.Errorf("%w: inserting embedding for chunk %s: %v", domain.ErrStorage, c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: committing embeddings: %v", domain.ErrStorage, err)
	}
	return len(chunks), nil
}

// encodeVector quantises a vector per the store setting.
func (s *vectorStore) encodeVector(vec []float32) ([]byte, quantize.Method, float32, float32, error) {
	method := s.store.compression
	c, err := quantize.Compress(vec, method)
	if err != nil {
		return nil, method, 0, 0, err
	}
	return c.Data, method, c.Min, c.Max, nil
}

// Search scores the query against every embedding stored for the
// owner and returns the top K above the threshold.
func (s *vectorStore) Search(ctx context.Context, query []float32, ownerID string, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	if len(query) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", domain.ErrInvalidInput)
	}

	dims, err := s.OwnerDimensions(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if dims == 0 {
		return nil, nil
	}
	if dims != len(query) {
		return nil, fmt.Errorf("%w: query has %d dimensions, owner %s stores %d",
			domain.ErrDimensionMismatch, len(query), ownerID, dims)
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = domain.DefaultTopK
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT e.chunk_id, e.document_id, e.vector, e.dimensions,
			e.compression, e.comp_min, e.comp_max,
			c.content, c.position
		FROM embeddings e
		JOIN chunks c ON c.id = e.chunk_id
		WHERE e.owner_id = ?
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: querying embeddings: %v", domain.ErrStorage, err)
	}
	defer rows.Close()

	queryNorm := vectorNorm(query)

	var results []domain.SearchResult
	for rows.Next() {
		var chunkID, documentID, content string
		var blob []byte
		var rowDims, position int
		var compression sql.NullString
		var compMin, compMax sql.NullFloat64

		if err := rows.Scan(&chunkID, &documentID, &blob, &rowDims,
			&compression, &compMin, &compMax, &content, &position); err != nil {
			return nil, fmt.Errorf("%w: scanning embedding: %v", domain.ErrStorage, err)
		}

		vec, err := decodeVector(blob, rowDims, compression, compMin, compMax)
		if err != nil {
			return nil, err
		}

		sim := cosineSimilarity(query, queryNorm, vec)
		if sim < opts.Threshold {
			continue
		}

		results = append(results, domain.SearchResult{
			ChunkID:    chunkID,
			DocumentID: documentID,
			ChunkIndex: position,
			Content:    content,
			Similarity: sim,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating embeddings: %v", domain.ErrStorage, err)
	}

	// Similarity descending; ties resolve by document then position so
	// repeated queries return identical orderings.
	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		if results[i].DocumentID != results[j].DocumentID {
			return results[i].DocumentID < results[j].DocumentID
		}
		return results[i].ChunkIndex < results[j].ChunkIndex
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// OwnerDimensions returns the stored dimensionality for an owner, or 0.
func (s *vectorStore) OwnerDimensions(ctx context.Context, ownerID string) (int, error) {
	var dims int
	err := s.store.db.QueryRowContext(ctx, `
		SELECT dimensions FROM embeddings WHERE owner_id = ? LIMIT 1
	`, ownerID).Scan(&dims)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: querying owner dimensions: %v", domain.ErrStorage, err)
	}
	return dims, nil
}

// CountEmbeddings returns how many embeddings an owner has stored.
func (s *vectorStore) CountEmbeddings(ctx context.Context, ownerID string) (int, error) {
	var count int
	err := s.store.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM embeddings WHERE owner_id = ?
	`, ownerID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: counting embeddings: %v", domain.ErrStorage, err)
	}
	return count, nil
}

// decodeVector reconstructs the stored float vector.
func decodeVector(blob []byte, dims int, compression sql.NullString, compMin, compMax sql.NullFloat64) ([]float32, error) {
	if !compression.Valid {
		return quantize.DecodeFloats(blob), nil
	}

	return quantize.Decompress(&quantize.Compressed{
		Data:       blob,
		Method:     quantize.Method(compression.String),
		Min:        float32(compMin.Float64),
		Max:        float32(compMax.Float64),
		Dimensions: dims,
	})
}

// cosineSimilarity computes the cosine of the angle between two
// vectors, given the precomputed norm of the first.
func cosineSimilarity(a []float32, aNorm float64, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, bNorm float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		bNorm += float64(b[i]) * float64(b[i])
	}
	if aNorm == 0 || bNorm == 0 {
		return 0
	}
	return dot / (aNorm * math.Sqrt(bNorm))
}

// vectorNorm returns the Euclidean norm.
func vectorNorm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
