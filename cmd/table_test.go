// file: cmd/table_test.go
// version: 1.0.0
// guid: 9b6e1d24-0c7a-4f35-b812-6a4d3e9c7f15

package cmd

import (
	"strings"
	"testing"
)

func TestRenderTable(t *testing.T) {
	out := renderTable(
		[]string{"Name", "Score"},
		[][]string{{"alpha", "10"}, {"beta"}, {"gamma", "3", "extra"}},
		[]columnAlignment{alignLeft, alignRight},
	)
	for _, want := range []string{"NAME", "SCORE", "alpha", "beta", "gamma"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in table:\n%s", want, out)
		}
	}
	if strings.Contains(out, "extra") {
		t.Errorf("cells beyond the header count should be dropped:\n%s", out)
	}
	if !strings.Contains(out, "╭") {
		t.Errorf("expected rounded borders:\n%s", out)
	}
	if got := renderTable(nil, [][]string{{"x"}}, nil); got != "" {
		t.Errorf("expected empty output without headers, got %q", got)
	}
}
