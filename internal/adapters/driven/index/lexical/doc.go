// Package lexical implements driven.LexicalIndex as an in-memory
// inverted index with TF-IDF scoring. Tokenisation is shared with query
// handling via the domain package, so index-time and query-time
// normalisation can never drift apart.
package lexical
