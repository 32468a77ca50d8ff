// Package htscode normalizes hierarchical tariff classification codes.
// Codes are digit strings with meaningful prefixes at fixed lengths:
// chapter (2), heading (4), subheading (6/8) and statistical suffix (10).
package htscode

import "strings"

// Digits strips every non-digit character from a code string.
func Digits(code string) string {
	var b strings.Builder
	b.Grow(len(code))
	for _, r := range code {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Chapter returns the two-digit chapter prefix of a code, or "" when the code
// has fewer than two digits.
func Chapter(code string) string {
	d := Digits(code)
	if len(d) < 2 {
		return ""
	}
	return d[:2]
}

// AncestorCandidates returns the ancestor code prefixes present in the given
// code at the logical lengths 10, 8 and 6, longest first, deduplicated. The
// input may contain separators.
func AncestorCandidates(code string) []string {
	d := Digits(code)
	var out []string
	for _, l := range []int{10, 8, 6} {
		if len(d) < l {
			continue
		}
		candidate := d[:l]
		dup := false
		for _, existing := range out {
			if existing == candidate {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, candidate)
		}
	}
	return out
}

// FormatHeading normalizes a heading reference to the NNNN.NN.NN[.NN] shape:
// digits are stripped and separators re-inserted at the fixed positions.
// Inputs with fewer than four digits are returned digit-stripped as-is.
func FormatHeading(heading string) string {
	d := Digits(heading)
	if len(d) < 4 {
		return d
	}
	parts := []string{d[:4]}
	for i := 4; i < len(d) && i < 10; i += 2 {
		end := i + 2
		if end > len(d) {
			end = len(d)
		}
		parts = append(parts, d[i:end])
	}
	return strings.Join(parts, ".")
}

// SameHeading reports whether two heading references denote the same heading
// after normalization.
func SameHeading(a, b string) bool {
	return FormatHeading(a) != "" && FormatHeading(a) == FormatHeading(b)
}
