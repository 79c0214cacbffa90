// Package digest derives the canonical content hash of an aggregated vector.
//
// The hash is SHA-256 over a compact JSON array whose elements are the
// vector's coordinates rounded to Precision decimal places and rendered with
// FormatFloat. The textual rule is fixed so that any implementation that
// rounds and formats the same way produces byte-identical payloads:
//
//   - shortest digits that round-trip to the same float64
//   - positional notation for decimal exponents in [-4, 16), always with a
//     fractional part ("1.0", "0.3", "-0.0")
//   - scientific notation otherwise, as d[.ddd]e±XX ("1e-05", "1.5e+16")
//   - elements separated by "," with no whitespace
package digest

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"math"
	"strconv"
	"strings"
)

// Precision is the number of decimal places kept before hashing.
const Precision = 8

// Size is the length of a hex-encoded digest.
const Size = sha256.Size * 2

const (
	minPositionalExp = -4
	maxPositionalExp = 16
)

// Round rounds x to places decimal places, correctly rounded from the exact
// binary value. Non-finite values are returned unchanged.
func Round(x float64, places int) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	r, err := strconv.ParseFloat(strconv.FormatFloat(x, 'f', places, 64), 64)
	if err != nil {
		return x
	}
	return r
}

// FormatFloat renders x using the canonical float text rule.
func FormatFloat(x float64) string {
	switch {
	case math.IsNaN(x):
		return "NaN"
	case math.IsInf(x, 1):
		return "Infinity"
	case math.IsInf(x, -1):
		return "-Infinity"
	}

	// Shortest round-trip digits in d.ddde±XX form.
	s := strconv.FormatFloat(x, 'e', -1, 64)
	sign := ""
	if s[0] == '-' {
		sign, s = "-", s[1:]
	}
	mantissa, expText, _ := strings.Cut(s, "e")
	exp, _ := strconv.Atoi(expText)
	digits := strings.Replace(mantissa, ".", "", 1)

	var b strings.Builder
	b.WriteString(sign)

	if exp < minPositionalExp || exp >= maxPositionalExp {
		b.WriteByte(digits[0])
		if len(digits) > 1 {
			b.WriteByte('.')
			b.WriteString(digits[1:])
		}
		b.WriteByte('e')
		if exp < 0 {
			b.WriteByte('-')
			exp = -exp
		} else {
			b.WriteByte('+')
		}
		if exp < 10 {
			b.WriteByte('0')
		}
		b.WriteString(strconv.Itoa(exp))
		return b.String()
	}

	point := exp + 1 // digits before the decimal point
	switch {
	case point <= 0:
		b.WriteString("0.")
		b.WriteString(strings.Repeat("0", -point))
		b.WriteString(digits)
	case point >= len(digits):
		b.WriteString(digits)
		b.WriteString(strings.Repeat("0", point-len(digits)))
		b.WriteString(".0")
	default:
		b.WriteString(digits[:point])
		b.WriteByte('.')
		b.WriteString(digits[point:])
	}
	return b.String()
}

// Canonical returns the exact bytes that Sum hashes for vector.
func Canonical(vector []float64) []byte {
	var b strings.Builder
	b.Grow(len(vector)*12 + 2)
	b.WriteByte('[')
	for i, v := range vector {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(FormatFloat(Round(v, Precision)))
	}
	b.WriteByte(']')
	return []byte(b.String())
}

// Sum returns the lowercase hex SHA-256 digest of vector's canonical form.
func Sum(vector []float64) string {
	sum := sha256.Sum256(Canonical(vector))
	return hex.EncodeToString(sum[:])
}

// Verify reports whether hash is the digest of vector.
func Verify(vector []float64, hash string) bool {
	want := Sum(vector)
	return subtle.ConstantTimeCompare([]byte(want), []byte(strings.ToLower(hash))) == 1
}
