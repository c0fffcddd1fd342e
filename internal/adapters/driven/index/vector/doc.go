// Package vector implements driven.VectorIndex as an in-memory
// brute-force cosine similarity index with cached vector norms.
package vector
