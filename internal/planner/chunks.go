package planner

// Span is a half-open range [Start, End) of plan positions.
type Span struct {
	Start int
	End   int
}

func (s Span) Len() int { return s.End - s.Start }

// Chunks splits total items into exactly workers contiguous spans of
// ceil(total/workers) items. Trailing spans are shorter or empty.
func Chunks(total, workers int) []Span {
	if workers < 1 {
		workers = 1
	}
	if total < 0 {
		total = 0
	}
	chunkSize := (total + workers - 1) / workers

	spans := make([]Span, workers)
	for i := 0; i < workers; i++ {
		spans[i] = Span{
			Start: min(i*chunkSize, total),
			End:   min((i+1)*chunkSize, total),
		}
	}
	return spans
}
