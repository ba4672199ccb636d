//go:build rp2040 || rp2350

package fmtx

import (
	"io"

	"bootcode-go/x/strconvx"
)

// DefaultOutput is used by Printf on MCU builds.
// Set this from your platform bootstrap (e.g. a UART writer).
var DefaultOutput io.Writer = discard{}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

// --- Public API (signatures match fmt) ---

func Sprintf(format string, a ...any) string {
	var b builder
	b.format(format, a...)
	return string(b.buf)
}

func Printf(format string, a ...any) (int, error) {
	s := Sprintf(format, a...)
	return DefaultOutput.Write([]byte(s))
}

func Errorf(format string, a ...any) error {
	return &stringError{Sprintf(format, a...)}
}

type stringError struct{ s string }

func (e *stringError) Error() string { return e.s }

// --- Internals: tiny formatter subset ---
// Supports %s %d %x %v %%. Enough for diagnostic lines; no flags, width or
// precision.

type builder struct{ buf []byte }

func (b *builder) str(s string) { b.buf = append(b.buf, s...) }

func (b *builder) any(v any) {
	switch x := v.(type) {
	case string:
		b.str(x)
	case []byte:
		b.buf = append(b.buf, x...)
	case int:
		b.str(strconvx.FormatInt(int64(x), 10))
	case int64:
		b.str(strconvx.FormatInt(x, 10))
	case uint:
		b.str(strconvx.FormatUint(uint64(x), 10))
	case uint32:
		b.str(strconvx.FormatUint(uint64(x), 10))
	case uint64:
		b.str(strconvx.FormatUint(x, 10))
	case bool:
		if x {
			b.str("true")
		} else {
			b.str("false")
		}
	case float32:
		b.str(strconvx.FormatFloat(float64(x), 'f', -1, 32))
	case float64:
		b.str(strconvx.FormatFloat(x, 'f', -1, 64))
	case error:
		b.str(x.Error())
	default:
		b.str("<unk>")
	}
}

func (b *builder) format(format string, args ...any) {
	ai := 0
	for i := 0; i < len(format); {
		if format[i] != '%' {
			b.buf = append(b.buf, format[i])
			i++
			continue
		}
		if i+1 < len(format) && format[i+1] == '%' {
			b.buf = append(b.buf, '%')
			i += 2
			continue
		}
		i++
		if i >= len(format) || ai >= len(args) {
			return
		}
		verb := format[i]
		arg := args[ai]
		ai++
		i++

		switch verb {
		case 's', 'v':
			b.any(arg)
		case 'd':
			b.str(strconvx.FormatInt(toI64(arg), 10))
		case 'x':
			b.str(strconvx.FormatUint(toU64(arg), 16))
		default:
			// Unknown verb: write it literally to aid debugging.
			b.buf = append(b.buf, '%', verb)
		}
	}
}

func toI64(v any) int64 {
	switch t := v.(type) {
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case int64:
		return t
	case uint:
		return int64(t)
	case uint32:
		return int64(t)
	case uint64:
		return int64(t)
	default:
		return 0
	}
}

func toU64(v any) uint64 {
	switch t := v.(type) {
	case int:
		return uint64(t)
	case int32:
		return uint64(t)
	case int64:
		return uint64(t)
	case uint:
		return uint64(t)
	case uint32:
		return uint64(t)
	case uint64:
		return t
	default:
		return 0
	}
}
