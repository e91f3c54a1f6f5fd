package retrieval

import (
	"encoding/binary"
	"math"
	"sort"
)

// CosineSimilarity returns the cosine of the angle between a and b, or 0
// when the lengths differ or either vector is zero.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// EncodeEmbedding packs a vector as little-endian float64s.
func EncodeEmbedding(vec []float64) []byte {
	buf := make([]byte, len(vec)*8)
	for i, v := range vec {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

// DecodeEmbedding unpacks a vector written by EncodeEmbedding.
func DecodeEmbedding(data []byte) []float64 {
	vec := make([]float64, len(data)/8)
	for i := range vec {
		vec[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
	}
	return vec
}

// TopK scores candidates against query and returns the k best, highest
// score first. Ties keep chunk order.
func TopK(query []float64, candidates []Chunk, k int) []Chunk {
	scored := make([]Chunk, len(candidates))
	for i, c := range candidates {
		c.Score = CosineSimilarity(query, c.Vector)
		scored[i] = c
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	k = max(k, 0)
	if k < len(scored) {
		scored = scored[:k]
	}
	return scored
}
