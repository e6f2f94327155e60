package cmdutil

import (
	"fmt"

	"github.com/urfave/cli/v2"
	"github.com/urfave/cli/v2/altsrc"
)

// WrapFlags wraps flags so each can also be supplied via the YAML file
// named by ConfigFileFlag. Covers the flag kinds this command uses;
// any new kind must be added here before use.
func WrapFlags(flags []cli.Flag) []cli.Flag {
	wrapped := make([]cli.Flag, 0, len(flags))
	for _, f := range flags {
		switch v := f.(type) {
		case *cli.StringFlag:
			f = altsrc.NewStringFlag(v)
		case *cli.StringSliceFlag:
			f = altsrc.NewStringSliceFlag(v)
		case *cli.Int64Flag:
			f = altsrc.NewInt64Flag(v)
		case *cli.IntFlag:
			f = altsrc.NewIntFlag(v)
		case *cli.BoolFlag:
			f = altsrc.NewBoolFlag(v)
		default:
			panic(fmt.Sprintf("cmdutil: cannot wrap flag of type %T", f))
		}
		wrapped = append(wrapped, f)
	}
	return wrapped
}

// Before builds a cli.BeforeFunc that, when ConfigFileFlag is set,
// loads each of flags' default from that YAML file before the
// command's Action runs. flags must be the same altsrc-wrapped slice
// installed as the app's Flags.
func Before(flags []cli.Flag) cli.BeforeFunc {
	return altsrc.InitInputSourceWithContext(flags, altsrc.NewYamlSourceFromFlagFunc(ConfigFileFlag.Name))
}
