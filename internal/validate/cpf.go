// Package validate holds pure, referentially transparent validators for
// the account forms. Nothing here performs I/O or touches session state,
// so every function is safe to run on each keystroke.
package validate

import "strings"

// Digits strips everything but ASCII digits from s.
func Digits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

// CPF validates an 11-digit Brazilian tax id. Input may be masked; only
// digits are considered. All-identical sequences are rejected even when
// their check digits would match.
func CPF(s string) bool {
	d := Digits(s)
	if len(d) != 11 {
		return false
	}

	allSame := true
	for i := 1; i < 11; i++ {
		if d[i] != d[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return false
	}

	if cpfCheckDigit(d, 9, 10) != int(d[9]-'0') {
		return false
	}
	return cpfCheckDigit(d, 10, 11) == int(d[10]-'0')
}

// cpfCheckDigit computes one CPF check digit over d[0:n] with descending
// weights starting at w. Remainder 10 maps to 0.
func cpfCheckDigit(d string, n, w int) int {
	sum := 0
	for i := 0; i < n; i++ {
		sum += int(d[i]-'0') * (w - i)
	}
	rem := sum * 10 % 11
	if rem == 10 {
		rem = 0
	}
	return rem
}

// FormatCPF renders an 11-digit CPF in the conventional mask. Anything
// else is returned unchanged.
func FormatCPF(s string) string {
	d := Digits(s)
	if len(d) != 11 {
		return s
	}
	return d[:3] + "." + d[3:6] + "." + d[6:9] + "-" + d[9:]
}
