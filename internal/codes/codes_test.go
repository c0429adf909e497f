// README: Security code generator tests (shape + concurrency).
package codes

import (
	"strings"
	"sync"
	"testing"
)

func TestGenerateLength(t *testing.T) {
	cases := []struct {
		n    int
		want int
	}{
		{0, DefaultLength},
		{-3, DefaultLength},
		{6, 6},
		{10, 10},
	}
	for _, tc := range cases {
		if got := len(Generate(tc.n)); got != tc.want {
			t.Errorf("Generate(%d) length = %d, want %d", tc.n, got, tc.want)
		}
	}
}

func TestGenerateAlphabet(t *testing.T) {
	for i := 0; i < 200; i++ {
		code := Generate(0)
		for _, c := range code {
			if !strings.ContainsRune(alphabet, c) {
				t.Fatalf("code %q contains %q outside alphabet", code, c)
			}
		}
	}
}

// Two independently generated codes colliding within one link would make the
// success and failure outcomes indistinguishable.
func TestGeneratePairsDistinct(t *testing.T) {
	for i := 0; i < 1000; i++ {
		if a, b := Generate(0), Generate(0); a == b {
			t.Fatalf("success/failure pair collided: %q", a)
		}
	}
}

func TestGenerateConcurrent(t *testing.T) {
	var wg sync.WaitGroup
	out := make(chan string, 64)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out <- Generate(0)
		}()
	}
	wg.Wait()
	close(out)
	for code := range out {
		if len(code) != DefaultLength {
			t.Errorf("concurrent Generate returned %q", code)
		}
	}
}
