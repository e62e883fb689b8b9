package inference

// PadBatch right-pads sequences to the longest one and builds the matching
// attention mask. Sequences longer than maxLength (when > 0) are cut, keeping
// their final token so the end-of-sequence marker survives.
func PadBatch(seqs [][]int64, maxLength int, padID int64) (ids, mask [][]int64) {
	width := 0
	rows := make([][]int64, len(seqs))
	for i, s := range seqs {
		if maxLength > 0 && len(s) > maxLength {
			cut := make([]int64, maxLength)
			copy(cut, s[:maxLength-1])
			cut[maxLength-1] = s[len(s)-1]
			s = cut
		}
		rows[i] = s
		width = max(width, len(s))
	}

	ids = make([][]int64, len(rows))
	mask = make([][]int64, len(rows))
	for i, s := range rows {
		ids[i] = make([]int64, width)
		mask[i] = make([]int64, width)
		for j := range width {
			if j < len(s) {
				ids[i][j] = s[j]
				mask[i][j] = 1
			} else {
				ids[i][j] = padID
			}
		}
	}
	return ids, mask
}

// Flatten lays a rectangular batch out row by row.
func Flatten(rows [][]int64) []int64 {
	if len(rows) == 0 {
		return nil
	}
	out := make([]int64, 0, len(rows)*len(rows[0]))
	for _, r := range rows {
		out = append(out, r...)
	}
	return out
}

// Argmax returns the index of the largest value.
func Argmax(v []float32) int64 {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return int64(best)
}
