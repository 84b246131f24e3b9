package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitLine(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"plain", "a,b,c", []string{"a", "b", "c"}},
		{"empty fields", "a,,c,", []string{"a", "", "c", ""}},
		{"empty line", "", []string{""}},
		{"quoted comma", `x,"a, b",y`, []string{"x", "a, b", "y"}},
		{"escaped quote", `"say \"hi\"",z`, []string{`say "hi"`, "z"}},
		{"trailing junk dropped", `"abc"def,g`, []string{"abc", "g"}},
		{"quoted last", `a,"b"`, []string{"a", "b"}},
		{"unterminated quote", `a,"bc`, []string{"a", "bc"}},
		{"doubled quote is not an escape", `"a""b",c`, []string{"a", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitLine(tt.in))
		})
	}
}
