package columns

import "slices"

// ColumnLetter converts a 1-based column index into its spreadsheet label:
// 1 → A, 26 → Z, 27 → AA, 52 → AZ, 53 → BA. It returns "" for n < 1.
func ColumnLetter(n int) string {
	if n < 1 {
		return ""
	}
	var buf []byte
	for n > 0 {
		n--
		buf = append(buf, byte('A'+n%26))
		n /= 26
	}
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return string(buf)
}

// HeaderRange returns the A1 range covering the first n cells of row 1.
func HeaderRange(n int) string {
	if n < 1 {
		n = 1
	}
	return "A1:" + ColumnLetter(n) + "1"
}

// ReconcileHeader compares the mirror's current first row with the
// configured headers. When they differ it returns the row to write over
// HeaderRange(len(values)): the configured headers, padded with blanks to the
// width of the current row so stale trailing headers are cleared.
func (s Spec) ReconcileHeader(current []string) (values []string, needed bool) {
	desired := s.Headers()
	if slices.Equal(current, desired) {
		return nil, false
	}

	width := len(desired)
	if len(current) > width {
		width = len(current)
	}
	values = make([]string, width)
	copy(values, desired)
	return values, true
}
