package cli_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/calvinalkan/fdio/internal/cli"
)

func Test_Help_Lists_Commands_When_Invoked_Without_Command(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout := c.MustRun()

	cli.AssertContains(t, stdout, "Usage: fdio [flags] <command> [args]")

	for _, name := range []string{"run [flags] <script>...", "eval <stmt>...", "repl [flags]", "print-config"} {
		cli.AssertContains(t, stdout, name)
	}
}

func Test_Help_Flag_Prints_Usage_To_Stdout(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout := c.MustRun("--help")

	cli.AssertContains(t, stdout, "--platform")
	cli.AssertContains(t, stdout, "--log-level")
}

func Test_Command_Help_Shows_Command_Flags(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout := c.MustRun("run", "--help")

	cli.AssertContains(t, stdout, "Usage: fdio run [flags] <script>...")
	cli.AssertContains(t, stdout, "--echo")
}

func Test_Unknown_Command_Fails_With_Usage(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stderr := c.MustFail("bogus")

	cli.AssertContains(t, stderr, "error: unknown command: bogus")
	cli.AssertContains(t, stderr, "Commands:")
}

func Test_Unknown_Global_Flag_Fails(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stderr := c.MustFail("--bogus", "print-config")

	cli.AssertContains(t, stderr, "error: unknown flag: --bogus")
}

func Test_Unknown_Command_Flag_Fails_With_Command_Help(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout, stderr, code := c.Run("eval", "--bogus", "1")

	if got, want := code, 1; got != want {
		t.Fatalf("code=%d, want=%d", got, want)
	}

	if stdout != "" {
		t.Fatalf("stdout=%q, want empty", stdout)
	}

	cli.AssertContains(t, stderr, "error: unknown flag: --bogus")
	cli.AssertContains(t, stderr, "Usage: fdio eval <stmt>...")
}

func Test_Command_Fails_With_Help_When_Positional_Args_Are_Missing(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout, stderr, code := c.Run("eval")

	if got, want := code, 1; got != want {
		t.Fatalf("code=%d, want=%d", got, want)
	}

	if stdout != "" {
		t.Fatalf("stdout=%q, want empty", stdout)
	}

	cli.AssertContains(t, stderr, "error: nothing to run: eval needs <stmt>...")
	cli.AssertContains(t, stderr, "Usage: fdio eval <stmt>...")
}

func Test_Command_Help_Omits_Flags_Section_When_Command_Has_No_Flags(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout := c.MustRun("print-config", "--help")

	cli.AssertContains(t, stdout, "Usage: fdio print-config\n")
	cli.AssertNotContains(t, stdout, "Flags:")
}

// Tests for print-config.

func Test_Print_Config_Defaults_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout := c.MustRun("print-config")

	cli.AssertContains(t, stdout, "effective_cwd="+c.Dir)
	cli.AssertContains(t, stdout, "platform=posix")
	cli.AssertContains(t, stdout, "log_level=warn")
	cli.AssertContains(t, stdout, "(defaults only)")
	cli.AssertNotContains(t, stdout, "history_file=")
	cli.AssertNotContains(t, stdout, "chaos_seed=")
}

func Test_Print_Config_From_Project_File_With_Comments(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	path := c.WriteFile(".fdio.json", `{
		// FatFs target
		"platform": "fat",
		"history_file": "hist",
	}`)

	stdout := c.MustRun("print-config")

	cli.AssertContains(t, stdout, "platform=fat")
	cli.AssertContains(t, stdout, "history_file="+filepath.Join(c.Dir, "hist"))
	cli.AssertContains(t, stdout, "project_config="+path)
}

func Test_Print_Config_Flags_Override_Files(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteFile(".fdio.yaml", "platform: fat\nlog_level: error\n")

	stdout := c.MustRun("--platform", "posix", "--log-level=debug", "print-config")

	cli.AssertContains(t, stdout, "platform=posix")
	cli.AssertContains(t, stdout, "log_level=debug")
}

func Test_Print_Config_Explicit_Config_Flag(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteFile(".fdio.json", `{"platform": "posix"}`)
	path := c.WriteFile("custom.json", `{"platform": "fat", "chaos": {"seed": 42}}`)

	stdout := c.MustRun("-c", "custom.json", "print-config")

	cli.AssertContains(t, stdout, "platform=fat")
	cli.AssertContains(t, stdout, "chaos_seed=42")
	cli.AssertContains(t, stdout, "project_config="+path)
}

func Test_Print_Config_Global_File_From_XDG_Config_Home(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.Env["XDG_CONFIG_HOME"] = filepath.Join(c.Dir, "xdg")
	path := c.WriteFile("xdg/fdio/config.json", `{"log_level": "info"}`)

	stdout := c.MustRun("print-config")

	cli.AssertContains(t, stdout, "log_level=info")
	cli.AssertContains(t, stdout, "global_config="+path)
	cli.AssertNotContains(t, stdout, "(defaults only)")
}

func Test_Invalid_Platform_Fails_Before_Running_Command(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stderr := c.MustFail("--platform", "dos", "eval", "1")

	cli.AssertContains(t, stderr, "unknown platform")
}

func Test_Missing_Explicit_Config_Fails(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stderr := c.MustFail("-c", "nope.json", "print-config")

	cli.AssertContains(t, stderr, "config file not found")
}

// Tests for run.

func Test_Run_Executes_Script_Relative_To_Cwd(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteFile("write.rb", `# writes a greeting
f = File.open("out.txt", "w")
f.syswrite("hello")
f.close
`)

	stdout := c.MustRun("run", "write.rb")

	if got, want := stdout, ""; got != want {
		t.Fatalf("stdout=%q, want=%q", got, want)
	}

	if got, want := c.ReadFile("out.txt"), "hello"; got != want {
		t.Fatalf("out.txt=%q, want=%q", got, want)
	}
}

func Test_Run_Echo_Prints_Statements_With_Results(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteFile("data.txt", "abcdef")
	c.WriteFile("read.rb", `f = File.open("data.txt")
f.sysread(3)

FileTest.size?("data.txt")
f.close
`)

	stdout := c.MustRun("run", "-e", "read.rb")

	want := strings.Join([]string{
		`f.sysread(3) => "abc"`,
		`FileTest.size?("data.txt") => 6`,
		`f.close => nil`,
	}, "\n")

	lines := strings.Split(stdout, "\n")
	if got := strings.Join(lines[1:], "\n"); got != want {
		t.Fatalf("stdout=\n%s\nwant=\n%s", got, want)
	}

	cli.AssertContains(t, lines[0], `f = File.open("data.txt") => #<File:fd `)
}

func Test_Run_Shares_Variables_Across_Scripts(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteFile("a.rb", "name = \"shared.txt\"\n")
	c.WriteFile("b.rb", "f = File.open(name, \"w\")\nf.close\n")

	c.MustRun("run", "a.rb", "b.rb")

	if _, err := os.Stat(filepath.Join(c.Dir, "shared.txt")); err != nil {
		t.Fatalf("shared.txt not created: %v", err)
	}
}

func Test_Run_Reports_Exception_With_Location(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteFile("twice.rb", `f = File.open("x.txt", "w")
f.close
f.close
File.open("never.txt", "w")
`)

	stderr := c.MustFail("run", "twice.rb")

	if got, want := stderr, "error: twice.rb:3: IOError: closed stream"; got != want {
		t.Fatalf("stderr=%q, want=%q", got, want)
	}

	if _, err := os.Stat(filepath.Join(c.Dir, "never.txt")); !os.IsNotExist(err) {
		t.Fatalf("statement after the error ran: %v", err)
	}
}

func Test_Run_Reports_Errno_Exceptions(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteFile("missing.rb", "File.open(\"nope/x.txt\")\n")

	stderr := c.MustFail("run", "missing.rb")

	cli.AssertContains(t, stderr, "error: missing.rb:1: Errno::ENOENT: ")
}

func Test_Run_Reads_Script_From_Stdin(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout, stderr, code := c.RunWithInput("FileTest.exist?(\"nothing\")\n", "run", "--echo", "-")

	if code != 0 {
		t.Fatalf("code=%d, stderr=%s", code, stderr)
	}

	if got, want := strings.TrimSpace(stdout), `FileTest.exist?("nothing") => false`; got != want {
		t.Fatalf("stdout=%q, want=%q", got, want)
	}
}

func Test_Run_Fails_Without_Scripts(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stderr := c.MustFail("run")

	cli.AssertContains(t, stderr, "nothing to run: run needs <script>...")
}

func Test_Run_Fails_When_Script_Is_Missing(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stderr := c.MustFail("run", "missing.rb")

	cli.AssertContains(t, stderr, "cannot open script")
}

func Test_Run_Syntax_Error_Is_Located(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteFile("bad.rb", "x = 1\nx = (\n")

	stderr := c.MustFail("run", "bad.rb")

	cli.AssertContains(t, stderr, "error: bad.rb:2: ")
}

func Test_Run_With_Chaos_Config_Injects_Open_Faults(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteFile(".fdio.json", `{"chaos": {"seed": 7, "rates": {"open": 1}}}`)
	c.WriteFile("open.rb", "File.open(\"x.txt\", \"w\")\n")

	stderr := c.MustFail("run", "open.rb")

	cli.AssertContains(t, stderr, "error: open.rb:1: Errno::")
}

// Tests for eval.

func Test_Eval_Prints_Each_Result(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout := c.MustRun("eval", `File.basename("a/b.txt")`, "File::LOCK_EX", "# ignored", "File::Constants::LOCK_UN")

	if got, want := stdout, "=> \"b.txt\"\n=> 2\n=> 8"; got != want {
		t.Fatalf("stdout=%q, want=%q", got, want)
	}
}

func Test_Eval_Getwd_Is_Effective_Cwd(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	if got, want := c.MustRun("eval", "File._getwd"), "=> \""+c.Dir+"\""; got != want {
		t.Fatalf("stdout=%q, want=%q", got, want)
	}

	if got, want := c.MustRun("--platform=fat", "eval", "File._getwd"), "=> nil"; got != want {
		t.Fatalf("fat stdout=%q, want=%q", got, want)
	}
}

func Test_Eval_Gethome_Reads_HOME_From_Env(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.Env["HOME"] = filepath.Join(c.Dir, "home")

	if got, want := c.MustRun("eval", "File._gethome"), "=> \""+c.Env["HOME"]+"\""; got != want {
		t.Fatalf("stdout=%q, want=%q", got, want)
	}
}

func Test_Eval_Fat_Rejects_IO_In_FileTest(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteFile("f.txt", "x")

	stderr := c.MustFail("--platform", "fat", "eval", `f = File.open("f.txt")`, "FileTest.exist?(f)")

	cli.AssertContains(t, stderr, "error: ArgumentError: ")
}

func Test_Eval_Oversized_Sysread_Raises_Instead_Of_Crashing(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteFile("d.txt", "abc")

	stderr := c.MustFail("eval", `f = File.open("d.txt")`, "f.sysread(4611686018427387904)")

	cli.AssertContains(t, stderr, "error: Errno::ENOMEM: sysread: ")
}

func Test_Eval_Stops_At_First_Error(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout, stderr, code := c.Run("eval", "1", "nope", "2")

	if got, want := code, 1; got != want {
		t.Fatalf("code=%d, want=%d", got, want)
	}

	if got, want := strings.TrimSpace(stdout), "=> 1"; got != want {
		t.Fatalf("stdout=%q, want=%q", got, want)
	}

	if got, want := strings.TrimSpace(stderr), "error: NameError: undefined local variable or method 'nope'"; got != want {
		t.Fatalf("stderr=%q, want=%q", got, want)
	}
}

// Tests for repl.

func Test_Repl_Evaluates_Lines_And_Keeps_Going_After_Errors(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout, stderr, code := c.RunWithInput("x = 5\n\nnope\nx\nexit\nx\n", "repl")

	if code != 0 {
		t.Fatalf("code=%d, stderr=%s", code, stderr)
	}

	if got, want := stdout, "=> 5\n=> 5\n"; got != want {
		t.Fatalf("stdout=%q, want=%q", got, want)
	}

	cli.AssertContains(t, stderr, "error: NameError: undefined local variable or method 'nope'")
}

func Test_Repl_Persists_History_Across_Sessions(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.Env["XDG_STATE_HOME"] = filepath.Join(c.Dir, "state")

	if _, stderr, code := c.RunWithInput("File::SEPARATOR\n", "repl"); code != 0 {
		t.Fatalf("first session code=%d, stderr=%s", code, stderr)
	}

	if _, stderr, code := c.RunWithInput("File::LOCK_SH\nexit\n", "repl"); code != 0 {
		t.Fatalf("second session code=%d, stderr=%s", code, stderr)
	}

	if got, want := c.ReadFile("state/fdio/history"), "File::SEPARATOR\nFile::LOCK_SH\nexit\n"; got != want {
		t.Fatalf("history=%q, want=%q", got, want)
	}
}

func Test_Repl_No_History_Flag_Skips_History_File(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.Env["XDG_STATE_HOME"] = filepath.Join(c.Dir, "state")

	c.MustRun("repl", "--no-history")

	if _, err := os.Stat(filepath.Join(c.Dir, "state")); !os.IsNotExist(err) {
		t.Fatalf("state dir was created: %v", err)
	}
}

func Test_Repl_Warns_When_History_Cannot_Be_Saved(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteFile("blocker", "not a directory")
	c.WriteFile(".fdio.json", `{"history_file": "blocker/history"}`)

	_, stderr, code := c.RunWithInput("1\n", "repl")

	if got, want := code, 1; got != want {
		t.Fatalf("code=%d, want=%d", got, want)
	}

	cli.AssertContains(t, stderr, "warning: history not saved: ")
}
