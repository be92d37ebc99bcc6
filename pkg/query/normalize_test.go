package query

import (
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestTransliterate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"интерьер", "interer"},
		{"цвет", "tsvet"},
		{"Жёлтый", "Zheltyj"},
		{"ЩУКА", "SchUKA"},
		{"объём", "obem"},
		{"red", "red"},
		{"юла и яма", "jula i jama"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Transliterate(tt.in))
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"cyrillic phrase with latin label", "интерьер в цвете red", "interer_v_tsvete_red"},
		{"latin only", "dark blue", "dark_blue"},
		{"punctuation runs", "a!!b;;c,,d''e__f", "a_b_c_d_e_f"},
		{"leading and trailing separators", "  ,red!  ", "red"},
		{"tabs and newlines", "navy\t\nblue", "navy_blue"},
		{"diacritics", "café crème", "cafe_creme"},
		{"only separators", " ,;!'_ ", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeCyrillicPhraseStructure(t *testing.T) {
	got := Normalize("интерьер в цвете red")

	assert.NotContains(t, got, " ")
	assert.NotContains(t, got, "__")
	for _, r := range got {
		assert.False(t, unicode.Is(unicode.Cyrillic, r), "unexpected cyrillic rune %q", r)
	}
	assert.Equal(t, []string{"interer", "v", "tsvete", "red"}, strings.Split(got, Separator))
}

func TestBuild(t *testing.T) {
	assert.Equal(t, "interer_v_tsvete_blue", Build("интерьер в цвете ", "blue"))
	assert.Equal(t, "blue", Build("", "blue"))
}

func TestNormalizeProperties(t *testing.T) {
	alphabet := []rune("abcXYZабвгжщъьЁЮé !;,'_\t")

	rapid.Check(t, func(t *rapid.T) {
		raw := rapid.StringOf(rapid.SampledFrom(alphabet)).Draw(t, "raw")
		got := Normalize(raw)

		for _, r := range got {
			if unicode.IsSpace(r) || strings.ContainsRune("!;,'", r) {
				t.Fatalf("normalize(%q) = %q contains separator %q", raw, got, r)
			}
		}
		if strings.HasPrefix(got, Separator) || strings.HasSuffix(got, Separator) || strings.Contains(got, "__") {
			t.Fatalf("normalize(%q) = %q has stray underscores", raw, got)
		}
		if Normalize(got) != got {
			t.Fatalf("normalize is not idempotent on %q", got)
		}
	})
}

func TestNormalizeNonEmptyProperty(t *testing.T) {
	letters := []rune("abcXYZабвгжщъьЁЮé\u0301")
	noise := []rune(" !;,'_\t")

	rapid.Check(t, func(t *rapid.T) {
		before := rapid.StringOf(rapid.SampledFrom(noise)).Draw(t, "before")
		letter := rapid.SampledFrom(letters).Draw(t, "letter")
		after := rapid.StringOf(rapid.SampledFrom(noise)).Draw(t, "after")

		if Normalize(before+string(letter)+after) == "" {
			t.Fatalf("normalize dropped every letter of %q", before+string(letter)+after)
		}
	})
}

func TestNormalizeKeepsLettersTransliterationDrops(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"ь", "ь"},
		{"ъ", "ъ"},
		{" ъ, ь ", "ъ_ь"},
		{"\u0301", "\u0301"},
		{"объём", "obem"},
		{"ь red", "red"},
	}

	for _, tt := range tests {
		got := Normalize(tt.raw)
		assert.Equal(t, tt.want, got, "normalize(%q)", tt.raw)
		assert.Equal(t, got, Normalize(got), "normalize is not idempotent on %q", got)
	}
}
