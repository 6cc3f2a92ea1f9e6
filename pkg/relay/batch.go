package relay

import "github.com/discogram/discogram/pkg/bus"

const (
	DefaultMaxGroupSize   = 10
	DefaultMaxPerDispatch = 50
)

// Batch is one outbound media call. Group batches use the destination's
// media-group operation; single-item batches use the per-kind send.
type Batch struct {
	Items   []bus.Attachment
	Caption string
	Group   bool
}

// Plan splits items into destination-legal batches in original order.
// Items past maxPerDispatch are dropped. Only the first batch carries the
// caption. A batch that ends up with one item is never a group.
func Plan(items []bus.Attachment, caption string, maxGroupSize, maxPerDispatch int) []Batch {
	if len(items) == 0 {
		return nil
	}
	if maxGroupSize <= 0 {
		maxGroupSize = DefaultMaxGroupSize
	}
	if maxPerDispatch <= 0 {
		maxPerDispatch = DefaultMaxPerDispatch
	}
	if len(items) > maxPerDispatch {
		items = items[:maxPerDispatch]
	}

	batches := make([]Batch, 0, (len(items)+maxGroupSize-1)/maxGroupSize)
	for start := 0; start < len(items); start += maxGroupSize {
		end := start + maxGroupSize
		if end > len(items) {
			end = len(items)
		}
		b := Batch{
			Items: items[start:end:end],
			Group: end-start > 1,
		}
		if start == 0 {
			b.Caption = caption
		}
		batches = append(batches, b)
	}
	return batches
}

// splitText cuts text into chunks no longer than maxLen as d counts length,
// preferring a newline in the last third of a chunk. A chunk never ends
// inside a backslash escape.
func splitText(text string, maxLen int, d Dialect) []string {
	runes := []rune(text)
	widths := d.widths(runes)

	// sum[i] is the counted length of runes[:i]
	sum := make([]int, len(runes)+1)
	for i, w := range widths {
		sum[i+1] = sum[i] + w
	}
	if maxLen <= 0 || sum[len(runes)] <= maxLen {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start
		for end < len(runes) && sum[end+1]-sum[start] <= maxLen {
			end++
		}
		if end == len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}
		if end == start {
			end++
		}

		// Try to break at a newline near the limit
		for i := end - 1; i > start; i-- {
			if runes[i] == '\n' {
				if sum[i]-sum[start] > maxLen*2/3 {
					end = i + 1
				}
				break
			}
		}

		// Do not leave a dangling escape at the end of the chunk
		trailing := 0
		for i := end - 1; i >= start && runes[i] == '\\'; i-- {
			trailing++
		}
		if trailing%2 == 1 && end-start > 1 {
			end--
		}

		chunks = append(chunks, string(runes[start:end]))
		start = end
	}

	return chunks
}
