//go:build rp2040 || rp2350

package strconvx

// Minimal, allocation-aware helpers with strconv-compatible signatures.
// Floats are decimal only (no exponents, infinities or NaN), which covers
// the persistent-parameter wire format.

func Itoa(i int) string { return FormatInt(int64(i), 10) }

func FormatInt(i int64, base int) string {
	if base < 2 || base > 36 {
		base = 10
	}
	neg := i < 0
	var u uint64
	if neg {
		u = uint64(-i)
	} else {
		u = uint64(i)
	}
	s := formatUint(u, base)
	if neg {
		return "-" + s
	}
	return s
}

func FormatUint(u uint64, base int) string {
	if base < 2 || base > 36 {
		base = 10
	}
	return formatUint(u, base)
}

func formatUint(u uint64, base int) string {
	if u == 0 {
		return "0"
	}
	const digits = "0123456789abcdefghijklmnopqrstuvwxyz"
	var buf [64]byte
	i := len(buf)
	b := uint64(base)
	for u > 0 {
		i--
		buf[i] = digits[u%b]
		u /= b
	}
	return string(buf[i:])
}

type parseError struct{}

func (parseError) Error() string { return "invalid syntax" }

// FormatFloat renders f in decimal. prec < 0 means "shortest": format with
// six fractional digits, then strip trailing zeros (and the point itself),
// so serialized parameters stay compact and re-parse to the same value.
func FormatFloat(f float64, fmt byte, prec, _ int) string {
	if fmt != 'f' && fmt != 'g' {
		fmt = 'f'
	}
	trim := prec < 0
	if prec < 0 || prec > 12 {
		prec = 6
	}
	neg := false
	if f < 0 {
		neg = true
		f = -f
	}
	intp := uint64(f)
	frac := f - float64(intp)

	var fracN uint64
	if prec > 0 {
		pow := 1.0
		for i := 0; i < prec; i++ {
			pow *= 10
		}
		fracN = uint64(frac*pow + 0.5)
		// Rounding can overflow the fraction; carry into the integer part.
		if fracN >= uint64(pow) {
			intp++
			fracN = 0
		}
	}

	out := FormatUint(intp, 10)
	if prec > 0 {
		fs := FormatUint(fracN, 10)
		for len(fs) < prec {
			fs = "0" + fs
		}
		if trim {
			for len(fs) > 0 && fs[len(fs)-1] == '0' {
				fs = fs[:len(fs)-1]
			}
		}
		if len(fs) > 0 {
			out += "." + fs
		}
	}
	if neg {
		return "-" + out
	}
	return out
}

// ParseFloat accepts an optionally signed decimal with an optional fraction.
// Trailing junk is an error.
func ParseFloat(s string, _ int) (float64, error) {
	if len(s) == 0 {
		return 0, parseError{}
	}
	neg := false
	if s[0] == '+' || s[0] == '-' {
		neg = s[0] == '-'
		s = s[1:]
	}
	if len(s) == 0 {
		return 0, parseError{}
	}
	var intPart uint64
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		intPart = intPart*10 + uint64(s[i]-'0')
		i++
	}
	var frac float64
	if i < len(s) && s[i] == '.' {
		i++
		scale := 1.0
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			frac = frac*10 + float64(s[i]-'0')
			scale *= 10
			i++
		}
		frac = frac / scale
	}
	if i != len(s) {
		return 0, parseError{}
	}
	v := float64(intPart) + frac
	if neg {
		v = -v
	}
	return v, nil
}
