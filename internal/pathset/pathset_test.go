package pathset

import (
	"sort"
	"testing"
)

func sorted(s Set[string]) []string {
	out := s.Values()
	sort.Strings(out)
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSymmetricDifference(t *testing.T) {
	tests := []struct {
		name string
		a    []string
		b    []string
		want []string
	}{
		{
			name: "disjoint changes",
			a:    []string{"A/", "B/"},
			b:    []string{"B/", "C/"},
			want: []string{"A/", "C/"},
		},
		{
			name: "identical sets",
			a:    []string{"Documents/", "Shared/"},
			b:    []string{"Shared/", "Documents/"},
			want: []string{},
		},
		{
			name: "old empty",
			a:    []string{},
			b:    []string{"X/"},
			want: []string{"X/"},
		},
		{
			name: "new empty",
			a:    []string{"X/"},
			b:    []string{},
			want: []string{"X/"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sorted(SymmetricDifference(New(tt.a...), New(tt.b...)))
			if !equal(got, tt.want) {
				t.Errorf("SymmetricDifference(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestUnionAndDifference(t *testing.T) {
	a := New("a", "b")
	b := New("b", "c")

	if got := sorted(Union(a, b)); !equal(got, []string{"a", "b", "c"}) {
		t.Errorf("Union = %v", got)
	}
	if got := sorted(Difference(a, b)); !equal(got, []string{"a"}) {
		t.Errorf("Difference = %v", got)
	}
	if !a.Contains("a") || a.Contains("c") {
		t.Error("Contains misbehaves")
	}
}
