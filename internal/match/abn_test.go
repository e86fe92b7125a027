package match

import (
	"errors"
	"testing"
)

func TestNormalizeABN(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"bare digits", "51824753556", "51824753556"},
		{"standard spacing", "51 824 753 556", "51824753556"},
		{"hyphens and dots", "51-824.753-556", "51824753556"},
		{"mixed separators", " 51 824-753.556 ", "51824753556"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizeABN(tc.input)
			if err != nil {
				t.Fatalf("NormalizeABN(%q): %v", tc.input, err)
			}
			if got != tc.want {
				t.Fatalf("NormalizeABN(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestNormalizeABNRejectsBadInput(t *testing.T) {
	inputs := []string{
		"",
		"1234567890",
		"123456789012",
		"5182475355a",
		"ABN 51824753556",
		"51,824,753,556",
	}

	for _, input := range inputs {
		if _, err := NormalizeABN(input); !errors.Is(err, ErrInvalidABN) {
			t.Fatalf("NormalizeABN(%q) err = %v, want ErrInvalidABN", input, err)
		}
	}
}
