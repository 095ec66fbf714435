// Package cli implements the fdio command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/fdio/internal/config"
	"github.com/calvinalkan/fdio/internal/script"
	"github.com/calvinalkan/fdio/pkg/fileio"
	"github.com/calvinalkan/fdio/pkg/fs"
)

// session is what every command needs once the global flags and the
// configuration are resolved. Commands are built before config is loaded
// and read it through the pointer.
type session struct {
	cfg    config.Config
	env    map[string]string
	errOut io.Writer
}

func (s *session) logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(s.errOut, &slog.HandlerOptions{Level: s.cfg.Level()}))
}

// interp returns an interpreter over the configured filesystem, rooted at
// the effective working directory.
func (s *session) interp() *script.Interp {
	log := s.logger()

	var fsys fs.FS = fs.NewRealAt(s.cfg.EffectiveCwd)

	if c := s.cfg.Chaos; c != nil {
		chaos := fs.NewChaos(fsys, c.Seed, c.ChaosConfig())
		chaos.SetMode(fs.ChaosModeInject)
		fsys = chaos

		log.Info("fault injection enabled", "seed", c.Seed)
	}

	sys := fileio.NewSystem(fsys,
		fileio.WithPlatform(s.cfg.PlatformValue()),
		fileio.WithLogger(log),
		fileio.WithEnv(s.env),
	)

	return script.New(sys, log)
}

// path resolves a command-line path against the effective working
// directory.
func (s *session) path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}

	return filepath.Join(s.cfg.EffectiveCwd, p)
}

type globalFlags struct {
	set        *flag.FlagSet
	workDir    string
	configPath string
	platform   string
	logLevel   string
	help       bool
}

func newGlobalFlags() *globalFlags {
	g := &globalFlags{set: flag.NewFlagSet("fdio", flag.ContinueOnError)}
	g.set.SetInterspersed(false)
	g.set.SetOutput(&strings.Builder{})

	g.set.StringVarP(&g.workDir, "cwd", "C", "", "Run as if fdio was started in `dir`")
	g.set.StringVarP(&g.configPath, "config", "c", "", "Use config `file` instead of the project config")
	g.set.StringVar(&g.platform, "platform", "", "Target platform: posix or fat")
	g.set.StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	g.set.BoolVarP(&g.help, "help", "h", false, "Show help")

	return g
}

// Run is the main entry point. Returns exit code.
//
// A signal on sigCh cancels the running command between statements of a
// script and between prompts of the REPL. sigCh may be nil.
func Run(in io.Reader, out io.Writer, errOut io.Writer, args []string, env map[string]string, sigCh <-chan os.Signal) int {
	globals := newGlobalFlags()
	s := &session{env: env, errOut: errOut}

	commands := []*Command{
		RunCmd(s),
		EvalCmd(s),
		ReplCmd(s),
		PrintConfigCmd(&s.cfg),
	}

	if len(args) > 0 {
		args = args[1:]
	}

	if err := globals.set.Parse(args); err != nil {
		fprintln(errOut, "error:", err)
		printUsage(errOut, globals, commands)

		return 1
	}

	rest := globals.set.Args()
	if globals.help || len(rest) == 0 {
		printUsage(out, globals, commands)

		return 0
	}

	cmd := findCommand(commands, rest[0])
	if cmd == nil {
		fprintln(errOut, "error: unknown command:", rest[0])
		printUsage(errOut, globals, commands)

		return 1
	}

	workDir, err := resolveWorkDir(globals.workDir)
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	s.cfg, err = config.Load(config.LoadInput{
		WorkDir:          workDir,
		ConfigPath:       globals.configPath,
		PlatformOverride: globals.platform,
		LogLevelOverride: globals.logLevel,
		Env:              env,
	})
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if sigCh != nil {
		go func() {
			select {
			case <-sigCh:
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	o := NewIO(in, out, errOut)

	if code := cmd.Run(ctx, o, rest[1:]); code != 0 {
		return code
	}

	// Finish handles warnings and exit code
	return o.Finish()
}

func resolveWorkDir(dir string) (string, error) {
	if dir != "" && filepath.IsAbs(dir) {
		return filepath.Clean(dir), nil
	}

	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("cannot get working directory: %w", err)
	}

	if dir == "" {
		return wd, nil
	}

	return filepath.Join(wd, dir), nil
}

func findCommand(commands []*Command, name string) *Command {
	for _, c := range commands {
		if c.Name() == name {
			return c
		}
	}

	return nil
}

var errNoArgs = errors.New("nothing to run")

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}

func printUsage(w io.Writer, globals *globalFlags, commands []*Command) {
	fprintln(w, "Usage: fdio [flags] <command> [args]")
	fprintln(w)
	fprintln(w, "Run File, FileTest and IO scripts against the filesystem.")
	fprintln(w)
	fprintln(w, "Flags:")
	_, _ = fmt.Fprint(w, globals.set.FlagUsages())
	fprintln(w)
	fprintln(w, "Commands:")

	for _, c := range commands {
		fprintln(w, c.HelpLine())
	}
}
