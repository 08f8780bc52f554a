package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want int
	}{
		{name: "both empty", a: "", b: "", want: 0},
		{name: "empty left", a: "", b: "abc", want: 3},
		{name: "empty right", a: "abc", b: "", want: 3},
		{name: "identical", a: "srv1", b: "srv1", want: 0},
		{name: "one substitution", a: "srv1", b: "srv2", want: 1},
		{name: "one insertion", a: "srv", b: "srv1", want: 1},
		{name: "one deletion", a: "server", b: "sever", want: 1},
		{name: "classic kitten", a: "kitten", b: "sitting", want: 3},
		{name: "completely different", a: "abc", b: "xyz", want: 3},
		{name: "multibyte runes", a: "héllo", b: "hello", want: 1},
		{name: "case sensitive", a: "Srv", b: "srv", want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Distance(tt.a, tt.b))
			assert.Equal(t, tt.want, Distance(tt.b, tt.a), "distance must be symmetric")
		})
	}
}

func TestDistance_Properties(t *testing.T) {
	words := []string{"", "a", "srv1", "srv2", "nas", "homeassistant", "pi-hole", "zzzzzzzz"}

	for _, a := range words {
		assert.Equal(t, 0, Distance(a, a), "distance(%q, %q) must be 0", a, a)

		for _, b := range words {
			d := Distance(a, b)
			if a != b {
				assert.Greater(t, d, 0, "distance(%q, %q) must be positive", a, b)
			}
			assert.LessOrEqual(t, d, max(len([]rune(a)), len([]rune(b))))
		}
	}
}

func TestDistance_SingleSubstitution(t *testing.T) {
	base := "workstation"
	for i := range base {
		b := []byte(base)
		b[i] = '#'
		assert.Equal(t, 1, Distance(base, string(b)), "substitution at %d", i)
	}
}
