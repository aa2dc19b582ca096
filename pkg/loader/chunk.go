package loader

import "github.com/leapstack-labs/blux/pkg/core"

// Chunk splits rows into consecutive slices of at most size rows, in
// order. The slices share the backing array of rows.
func Chunk(rows []core.Row, size int) [][]core.Row {
	if size < 1 {
		size = DefaultChunkSize
	}
	if len(rows) == 0 {
		return nil
	}
	chunks := make([][]core.Row, 0, (len(rows)+size-1)/size)
	for start := 0; start < len(rows); start += size {
		end := min(start+size, len(rows))
		chunks = append(chunks, rows[start:end:end])
	}
	return chunks
}
