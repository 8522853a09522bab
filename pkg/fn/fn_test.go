package fn

import (
	"context"
	"errors"
	"testing"
)

func TestResultOkErr(t *testing.T) {
	r := Ok(42)
	if !r.IsOk() || r.IsErr() {
		t.Fatal("Ok result should be ok")
	}
	v, err := r.Unwrap()
	if v != 42 || err != nil {
		t.Fatalf("unexpected unwrap: %v %v", v, err)
	}

	e := Err[int](errors.New("boom"))
	if e.IsOk() {
		t.Fatal("Err result should not be ok")
	}
	if e.UnwrapOr(7) != 7 {
		t.Fatal("UnwrapOr should return fallback")
	}
}

func TestErrf(t *testing.T) {
	e := Errf[string]("bad %s", "input")
	_, err := e.Unwrap()
	if err == nil || err.Error() != "bad input" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFromPair(t *testing.T) {
	if r := FromPair(1, nil); !r.IsOk() {
		t.Fatal("nil error should be ok")
	}
	if r := FromPair(0, errors.New("x")); r.IsOk() {
		t.Fatal("non-nil error should be err")
	}
}

func TestThen(t *testing.T) {
	double := MapStage(func(n int) int { return n * 2 })
	fail := Stage[int, int](func(context.Context, int) Result[int] {
		return Errf[int]("nope")
	})

	r := Then(double, double)(context.Background(), 3)
	if v, _ := r.Unwrap(); v != 12 {
		t.Fatalf("expected 12, got %d", v)
	}

	r = Then(fail, double)(context.Background(), 3)
	if r.IsOk() {
		t.Fatal("expected short-circuit on first error")
	}
}

func TestTracedStagePassthrough(t *testing.T) {
	stage := TracedStage("test", MapStage(func(s string) int { return len(s) }))
	v, err := stage(context.Background(), "abcd").Unwrap()
	if err != nil || v != 4 {
		t.Fatalf("unexpected: %v %v", v, err)
	}
}

func TestMapFilterChunk(t *testing.T) {
	got := Map([]int{1, 2, 3}, func(n int) int { return n + 1 })
	if len(got) != 3 || got[0] != 2 || got[2] != 4 {
		t.Fatalf("Map: %v", got)
	}

	odd := Filter([]int{1, 2, 3, 4}, func(n int) bool { return n%2 == 1 })
	if len(odd) != 2 || odd[1] != 3 {
		t.Fatalf("Filter: %v", odd)
	}

	chunks := Chunk([]int{1, 2, 3, 4, 5}, 2)
	if len(chunks) != 3 || len(chunks[2]) != 1 {
		t.Fatalf("Chunk: %v", chunks)
	}
	if Chunk([]int{1}, 0) != nil {
		t.Fatal("Chunk with n<=0 should be nil")
	}
}
