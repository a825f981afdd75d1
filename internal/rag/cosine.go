package rag

import (
	"encoding/binary"
	"math"
	"sort"
)

// CosineSimilarity returns (a · b) / (‖a‖ ‖b‖). Vectors of different length,
// empty vectors, and zero vectors score 0.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
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
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// rankMatches filters out matches below minScore, sorts the rest by
// descending score and truncates to limit. Ties keep their input order.
func rankMatches(matches []Match, limit int, minScore float32) []Match {
	out := make([]Match, 0, len(matches))
	for _, m := range matches {
		if m.Score >= minScore {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if limit < 0 {
		limit = 0
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// float32sToBytes packs v as little-endian IEEE-754 values.
func float32sToBytes(v []float32) []byte {
	b := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(f))
	}
	return b
}

// bytesToFloat32s is the inverse of float32sToBytes. Trailing bytes that do
// not form a whole value are ignored.
func bytesToFloat32s(b []byte) []float32 {
	n := len(b) / 4
	v := make([]float32, n)
	for i := 0; i < n; i++ {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4 : (i+1)*4]))
	}
	return v
}
