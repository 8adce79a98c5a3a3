package config

import (
	"fmt"
	"strconv"

	"github.com/spf13/pflag"
)

// IntBool is a boolean flag written as 0/1 (true/false also accepted).
// It always takes a value, so both --flag 0 and --flag=0 parse.
type IntBool bool

var _ pflag.Value = (*IntBool)(nil)

func (b *IntBool) String() string {
	if b != nil && *b {
		return "1"
	}
	return "0"
}

func (b *IntBool) Set(s string) error {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return fmt.Errorf("%q is not 0, 1, true or false", s)
	}
	*b = IntBool(v)
	return nil
}

func (b *IntBool) Type() string { return "0|1" }

// IntBoolVar defines an IntBool flag on fs.
func IntBoolVar(fs *pflag.FlagSet, name string, value bool, usage string) {
	v := IntBool(value)
	fs.Var(&v, name, usage)
}
