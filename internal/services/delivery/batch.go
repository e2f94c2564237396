package delivery

const (
	// MaxBatchBytes is 90% of the 2 MB pipeline limit; the rest is left for
	// the headers added to each message.
	MaxBatchBytes = 2097152 * 0.9

	// MaxBatchSize is the maximum number of messages in one batch.
	MaxBatchSize = 100
)

// BatchGenerator slices the next batch off a pending list.
type BatchGenerator struct {
	maxBytes float64
	maxSize  int
}

// NewBatchGenerator creates a BatchGenerator with the publish limits.
func NewBatchGenerator() *BatchGenerator {
	return &BatchGenerator{maxBytes: MaxBatchBytes, maxSize: MaxBatchSize}
}

// Generate returns the longest prefix of pending whose cumulative size does
// not exceed the byte limit, capped at the item limit.
func (g *BatchGenerator) Generate(pending []Pending) []Pending {
	total := 0
	batch := make([]Pending, 0, min(len(pending), g.maxSize))

	for _, p := range pending {
		total += p.Size
		if float64(total) > g.maxBytes {
			return batch
		}

		batch = append(batch, p)
		if len(batch) == g.maxSize {
			return batch
		}
	}

	return batch
}
