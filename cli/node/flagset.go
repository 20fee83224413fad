package node

import "math"

// FlagSet is a serializable flag set implementation. It allows to pack the
// flags coming from a CLI application and send them to a daemon. The values
// are decoded from JSON on the daemon side, so every number is a float64.
//
// - implements cli.Flags
type FlagSet map[string]interface{}

// String implements cli.Flags. It returns the string associated with the flag
// name if it is set, otherwise it returns an empty string.
func (fset FlagSet) String(name string) string {
	switch v := fset[name].(type) {
	case string:
		return v
	default:
		return ""
	}
}

// Path implements cli.Flags. It returns the path associated with the flag name
// if it is set, otherwise it returns an empty string.
func (fset FlagSet) Path(name string) string {
	return fset.String(name)
}

// Int64 implements cli.Flags. It returns the integer associated with the flag
// if it is set, otherwise it returns zero. A decoded number with a fractional
// part is not an integer.
func (fset FlagSet) Int64(name string) int64 {
	switch v := fset[name].(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case float64:
		if v != math.Trunc(v) {
			return 0
		}

		return int64(v)
	default:
		return 0
	}
}

// Float64 implements cli.Flags. It returns the number associated with the flag
// if it is set, otherwise it returns zero.
func (fset FlagSet) Float64(name string) float64 {
	switch v := fset[name].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}
