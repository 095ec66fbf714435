package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/fdio/internal/script"
	"github.com/calvinalkan/fdio/pkg/builtin"
)

// RunCmd returns the run command.
func RunCmd(s *session) *Command {
	flags := flag.NewFlagSet("run", flag.ContinueOnError)
	echo := flags.BoolP("echo", "e", false, "Print every statement with its result")

	return &Command{
		Flags:   flags,
		Usage:   "[flags] <script>...",
		MinArgs: 1,
		Short:   "Run script files",
		Long: `Run script files in order, sharing one interpreter.

Each line of a script is one statement. Execution stops at the first
error, which is reported as file:line. Use - to read a script from stdin.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			return execRun(ctx, o, s, args, *echo)
		},
	}
}

func execRun(ctx context.Context, o *IO, s *session, paths []string, echo bool) error {
	in := s.interp()
	defer in.Close()

	var echoFn func(string, builtin.Value)
	if echo {
		echoFn = func(stmt string, v builtin.Value) {
			o.Printf("%s => %s\n", stmt, script.Inspect(v))
		}
	}

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := runScript(in, o, s, path, echoFn); err != nil {
			return err
		}
	}

	return nil
}

func runScript(in *script.Interp, o *IO, s *session, path string, echo func(string, builtin.Value)) error {
	if path == "-" {
		if o.in == nil {
			return fmt.Errorf("%w: stdin is not available", errNoArgs)
		}

		return in.Run("-", o.in, echo)
	}

	f, err := os.Open(s.path(path))
	if err != nil {
		return fmt.Errorf("cannot open script: %w", err)
	}
	defer f.Close()

	return in.Run(path, f, echo)
}

// EvalCmd returns the eval command.
func EvalCmd(s *session) *Command {
	return &Command{
		Flags:   flag.NewFlagSet("eval", flag.ContinueOnError),
		Usage:   "<stmt>...",
		MinArgs: 1,
		Short:   "Evaluate statements and print their results",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			return execEval(ctx, o, s, args)
		},
	}
}

func execEval(ctx context.Context, o *IO, s *session, stmts []string) error {
	in := s.interp()
	defer in.Close()

	for _, stmt := range stmts {
		if err := ctx.Err(); err != nil {
			return err
		}

		v, ok, err := in.Eval(stmt)
		if err != nil {
			return err
		}

		if ok {
			printResult(o.out, v)
		}
	}

	return nil
}

func printResult(w io.Writer, v builtin.Value) {
	_, _ = fmt.Fprintln(w, "=>", script.Inspect(v))
}
