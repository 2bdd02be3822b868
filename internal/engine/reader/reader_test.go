package reader

import (
	"reflect"
	"testing"
)

func texts(r *Reader) []string {
	var out []string
	for _, l := range r.Lines() {
		out = append(out, l.Text)
	}
	return out
}

func TestFreeFormContinuationAndComments(t *testing.T) {
	src := "module m ! trailing comment\n" +
		"  integer :: a, &\n" +
		"    ! interleaved comment\n" +
		"     & b\n" +
		"  character(len=5) :: s = 'a!b' ! not a doc\n" +
		"  a = 1; b = 2\n" +
		"end module m\n"
	r := New(src, DefaultOptions())
	want := []string{
		"module m",
		"integer :: a, b",
		"character(len=5) :: s = 'a!b'",
		"a = 1",
		"b = 2",
		"end module m",
	}
	if got := texts(r); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
	lines := r.Lines()
	if lines[1].Number != 2 {
		t.Errorf("continued statement should keep first line number, got %d", lines[1].Number)
	}
	if lines[4].Number != 6 {
		t.Errorf("semicolon split should share line number, got %d", lines[4].Number)
	}
}

func TestDocCommentsFollowStatement(t *testing.T) {
	src := "!> predoc for f\n" +
		"!| second predoc\n" +
		"!  still predoc\n" +
		"function f(x)\n" +
		"  !! doc for f\n" +
		"  real :: x !! inline doc\n" +
		"  !* alt block\n" +
		"  ! continues alt\n" +
		"\n" +
		"  ! plain comment\n" +
		"end function\n"
	got := texts(New(src, DefaultOptions()))
	want := []string{
		"function f(x)",
		"!! predoc for f",
		"!! second predoc",
		"!!  still predoc",
		"!! doc for f",
		"real :: x",
		"!! inline doc",
		"!! alt block",
		"!! continues alt",
		"end function",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %q\nwant %q", got, want)
	}
}

func TestContinuedString(t *testing.T) {
	src := "print *, 'abc&\n     &def'\n"
	got := texts(New(src, DefaultOptions()))
	want := []string{"print *, 'abcdef'"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestFixedForm(t *testing.T) {
	src := "C     a comment\n" +
		"      SUBROUTINE S(A,\n" +
		"     1             B)\n" +
		"C! doc for s\n" +
		"  100 FORMAT (I5)\n" +
		"      X = 1                                                             IGNORED\n" +
		"      END\n"
	got := texts(New(src, Options{Fixed: true, FixedLengthLimit: true}))
	want := []string{
		"SUBROUTINE S(A,B)",
		"!! doc for s",
		"100 FORMAT (I5)",
		"X = 1",
		"END",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %q\nwant %q", got, want)
	}
}

func TestPushBack(t *testing.T) {
	r := New("a = 1\nb = 2\n", DefaultOptions())
	first, ok := r.Next()
	if !ok || first.Text != "a = 1" {
		t.Fatalf("unexpected first line %+v", first)
	}
	second, _ := r.Next()
	r.PushBack(second)
	again, ok := r.Next()
	if !ok || again != second {
		t.Fatalf("push back did not restore %+v, got %+v", second, again)
	}
	if _, ok := r.Next(); ok {
		t.Fatal("expected end of input")
	}
}
