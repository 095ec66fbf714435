package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	flag "github.com/spf13/pflag"
)

// Command is one fdio subcommand.
type Command struct {
	// Flags holds the command's flags. Its name is the command name.
	Flags *flag.FlagSet

	// Usage follows the command name in help output, e.g. "[flags] <script>...".
	Usage string

	// Short is the one-line description in the command listing.
	Short string

	// Long is the description in "fdio <cmd> --help". Short is used when empty.
	Long string

	// MinArgs is how many positional arguments Exec needs. Fewer is a usage
	// error reported before Exec runs.
	MinArgs int

	// Exec runs the command with the positional arguments left after flags.
	Exec func(ctx context.Context, o *IO, args []string) error
}

// Name returns the command name.
func (c *Command) Name() string {
	return c.Flags.Name()
}

func (c *Command) synopsis() string {
	if c.Usage == "" {
		return c.Name()
	}

	return c.Name() + " " + c.Usage
}

// HelpLine returns the command's line in the global command listing.
func (c *Command) HelpLine() string {
	return fmt.Sprintf("  %-26s %s", c.synopsis(), c.Short)
}

// writeHelp prints the full help for the command.
func (c *Command) writeHelp(w io.Writer) {
	desc := c.Long
	if desc == "" {
		desc = c.Short
	}

	_, _ = fmt.Fprintf(w, "Usage: fdio %s\n\n%s\n", c.synopsis(), desc)

	if c.Flags.HasFlags() {
		_, _ = fmt.Fprintf(w, "\nFlags:\n%s", c.Flags.FlagUsages())
	}
}

// Run parses flags and executes the command. Returns exit code.
//
// Requested help goes to stdout. Usage errors print the error followed by
// the help to stderr; Exec errors print only the error.
func (c *Command) Run(ctx context.Context, o *IO, args []string) int {
	c.Flags.SetOutput(io.Discard)

	err := c.Flags.Parse(args)
	if errors.Is(err, flag.ErrHelp) {
		c.writeHelp(o.out)

		return 0
	}

	if err == nil && c.Flags.NArg() < c.MinArgs {
		err = fmt.Errorf("%w: %s needs %s", errNoArgs, c.Name(), strings.TrimPrefix(c.Usage, "[flags] "))
	}

	if err != nil {
		o.ErrPrintln("error:", err)
		o.ErrPrintln()
		c.writeHelp(o.errOut)

		return 1
	}

	if err := c.Exec(ctx, o, c.Flags.Args()); err != nil {
		o.ErrPrintln("error:", err)

		return 1
	}

	return 0
}
