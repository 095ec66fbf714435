package script_test

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/sys/unix"

	"github.com/calvinalkan/fdio/internal/script"
	"github.com/calvinalkan/fdio/pkg/builtin"
	"github.com/calvinalkan/fdio/pkg/fileio"
	"github.com/calvinalkan/fdio/pkg/fs"
)

func newInterp(t *testing.T, fsys fs.FS, opts ...fileio.Option) *script.Interp {
	t.Helper()

	return script.New(fileio.NewSystem(fsys, opts...), nil)
}

var fdNumber = regexp.MustCompile(`fd \d+`)

// transcript runs lines and returns "stmt => inspect" for each, with
// descriptor numbers masked.
func transcript(t *testing.T, in *script.Interp, lines ...string) []string {
	t.Helper()

	var out []string

	err := in.Run("test", strings.NewReader(strings.Join(lines, "\n")), func(stmt string, v builtin.Value) {
		out = append(out, stmt+" => "+fdNumber.ReplaceAllString(script.Inspect(v), "fd N"))
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	return out
}

func Test_Interp_Writes_Then_Reads_Back_A_File(t *testing.T) {
	t.Parallel()

	in := newInterp(t, fs.NewReal())
	path := filepath.Join(t.TempDir(), "a.txt")

	got := transcript(t, in,
		`fd = IO.sysopen("`+path+`", "w")`,
		`w = IO.new(fd, "w")`,
		`w.syswrite("abc")`,
		`w.close`,
		`r = File.open("`+path+`")`,
		`r.sysread(3)`,
		`r.close`,
		`r.closed?`,
	)

	fd, _ := in.Var("fd")

	want := []string{
		`fd = IO.sysopen("` + path + `", "w") => ` + script.Inspect(fd),
		`w = IO.new(fd, "w") => #<IO:fd N>`,
		`w.syswrite("abc") => 3`,
		`w.close => nil`,
		`r = File.open("` + path + `") => #<File:fd N>`,
		`r.sysread(3) => "abc"`,
		`r.close => nil`,
		`r.closed? => true`,
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("transcript mismatch (-want +got):\n%s", diff)
	}
}

func Test_Interp_Reports_IOError_When_Closing_Twice(t *testing.T) {
	t.Parallel()

	in := newInterp(t, fs.NewReal())
	path := filepath.Join(t.TempDir(), "a.txt")

	src := strings.Join([]string{
		`f = File.open("` + path + `", "w")`,
		``,
		`# close it`,
		`f.close`,
		`f.close`,
		`f.close`,
	}, "\n")

	err := in.Run("twice.rb", strings.NewReader(src), nil)

	var scriptErr *script.Error
	if !errors.As(err, &scriptErr) {
		t.Fatalf("err=%v, want *script.Error", err)
	}

	if got, want := scriptErr.Line, 5; got != want {
		t.Fatalf("Line=%d, want=%d", got, want)
	}

	if got, want := err.Error(), "twice.rb:5: IOError: closed stream"; got != want {
		t.Fatalf("err=%q, want=%q", got, want)
	}
}

func Test_Interp_Answers_Size_Queries(t *testing.T) {
	t.Parallel()

	in := newInterp(t, fs.NewReal())
	dir := t.TempDir()
	five := filepath.Join(dir, "five")
	empty := filepath.Join(dir, "empty")

	if err := os.WriteFile(five, []byte("12345"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	got := transcript(t, in,
		`FileTest.size?("`+five+`")`,
		`FileTest.size?("`+empty+`")`,
		`FileTest.size?("`+filepath.Join(dir, "missing")+`")`,
		`FileTest.zero?("`+empty+`")`,
	)

	want := []string{
		`FileTest.size?("` + five + `") => 5`,
		`FileTest.size?("` + empty + `") => nil`,
		`FileTest.size?("` + filepath.Join(dir, "missing") + `") => nil`,
		`FileTest.zero?("` + empty + `") => true`,
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("transcript mismatch (-want +got):\n%s", diff)
	}
}

func Test_Interp_Reclaims_Unreferenced_Handles_When_Descriptors_Run_Out(t *testing.T) {
	t.Parallel()

	chaos := fs.NewChaos(fs.NewReal(), 1, fs.ChaosConfig{})
	in := newInterp(t, chaos)
	path := filepath.Join(t.TempDir(), "a.txt")

	transcript(t, in,
		`f = File.open("`+path+`", "w")`,
		`g = File.open("`+path+`")`,
		`f = nil`,
	)

	chaos.FailNext(fs.OpOpen, unix.EMFILE)

	got := transcript(t, in, `h = File.open("`+path+`")`, `g.closed?`)

	if got, want := got[1], `g.closed? => false`; got != want {
		t.Fatalf("%s, want %s", got, want)
	}

	if got, want := in.Registry().Live(), 2; got != want {
		t.Fatalf("Live()=%d, want=%d", got, want)
	}

	for _, name := range []string{"g", "h"} {
		v, _ := in.Var(name)
		_ = v.(*builtin.Object).Handle().Close()
	}
}

func Test_Interp_Resolves_Constants_Globals_And_Kernel_Calls(t *testing.T) {
	t.Parallel()

	in := newInterp(t, fs.NewReal())

	got := transcript(t, in,
		`File::Constants::LOCK_EX`,
		`File::LOCK_NB`,
		`File::SEPARATOR`,
		`$/`,
		`$undefined`,
		`File.basename("/a/b.rb")`,
		`x = File.basename("c/d")`,
		`x`,
	)

	want := []string{
		`File::Constants::LOCK_EX => 2`,
		`File::LOCK_NB => 4`,
		`File::SEPARATOR => "/"`,
		`$/ => "\n"`,
		`$undefined => nil`,
		`File.basename("/a/b.rb") => "b.rb"`,
		`x = File.basename("c/d") => "d"`,
		`x => "d"`,
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("transcript mismatch (-want +got):\n%s", diff)
	}
}

func Test_Interp_Raises_NameError_For_Unknown_Names(t *testing.T) {
	t.Parallel()

	in := newInterp(t, fs.NewReal())

	tests := map[string]string{
		`nope`:               "NameError: undefined local variable or method 'nope'",
		`Nope`:               "NameError: uninitialized constant Nope",
		`File::Nope`:         "NameError: uninitialized constant File::Nope",
		`File::SEPARATOR::X`: "TypeError: File::SEPARATOR is not a class/module",
		`open("|ls")`:        "ArgumentError: IO.popen is not supported on this platform.",
	}

	for line, want := range tests {
		_, _, err := in.Eval(line)
		if err == nil {
			t.Fatalf("Eval(%q) err=nil, want %q", line, want)
		}

		if got := err.Error(); got != want {
			t.Fatalf("Eval(%q) err=%q, want=%q", line, got, want)
		}
	}
}

func Test_Interp_Eval_Skips_Comments(t *testing.T) {
	t.Parallel()

	in := newInterp(t, fs.NewReal())

	v, ok, err := in.Eval("# nothing")
	if err != nil || ok || v != nil {
		t.Fatalf("Eval(comment)=(%v, %v, %v), want=(nil, false, nil)", v, ok, err)
	}
}
