package cli

// StringFlag is a definition of a command flag expected to be parsed as a
// string.
//
// - implements cli.Flag
type StringFlag struct {
	Name     string
	Usage    string
	Required bool
	Value    string
}

// Flag implements cli.Flag.
func (flag StringFlag) Flag() {}

// Int64Flag is a definition of a command flag expected to be parsed as a 64-bit
// integer, like a timestamp or an amount.
//
// - implements cli.Flag
type Int64Flag struct {
	Name     string
	Usage    string
	Required bool
	Value    int64
}

// Flag implements cli.Flag.
func (flag Int64Flag) Flag() {}

// Float64Flag is a definition of a command flag expected to be parsed as a
// floating-point number.
//
// - implements cli.Flag
type Float64Flag struct {
	Name     string
	Usage    string
	Required bool
	Value    float64
}

// Flag implements cli.Flag.
func (flag Float64Flag) Flag() {}
