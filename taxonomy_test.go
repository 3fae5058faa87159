package troupe

import (
	"reflect"
	"testing"
)

func TestTaxonomy_DetectSortedCategories(t *testing.T) {
	tax := NewTopicTaxonomy()
	got := tax.Detect("anyone up for a game while the pizza arrives?")
	want := []string{"food", "gaming"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Detect = %v, want %v", got, want)
	}
}

func TestTaxonomy_WordBoundary(t *testing.T) {
	tax := NewTopicTaxonomy()
	// "start" contains "art" but must not classify as art.
	if got := tax.Detect("let's start over"); len(got) != 0 {
		t.Fatalf("Detect = %v, want no matches", got)
	}
	if got := tax.Detect("i love art museums"); len(got) != 1 || got[0] != "art" {
		t.Fatalf("Detect = %v, want [art]", got)
	}
}

func TestTaxonomy_NoMatch(t *testing.T) {
	tax := NewTopicTaxonomy()
	if got := tax.Detect("hmm okay then"); got != nil {
		t.Fatalf("Detect = %v, want nil", got)
	}
}

func TestTaxonomy_YAMLMergeExtendsAndAdds(t *testing.T) {
	tax := NewTopicTaxonomy()
	yamlDoc := []byte(`
topics:
  gaming:
    - Balatro
  astrology:
    - horoscope
    - zodiac
`)
	if err := tax.LoadTaxonomyYAML(yamlDoc); err != nil {
		t.Fatalf("LoadTaxonomyYAML: %v", err)
	}

	if got := tax.Detect("one more run of balatro"); len(got) != 1 || got[0] != "gaming" {
		t.Fatalf("merged keyword not detected: %v", got)
	}
	if got := tax.Detect("read my horoscope today"); len(got) != 1 || got[0] != "astrology" {
		t.Fatalf("new category not detected: %v", got)
	}
	// Built-in keywords survive the merge.
	if got := tax.Detect("new minecraft update"); len(got) != 1 || got[0] != "gaming" {
		t.Fatalf("built-in keyword lost: %v", got)
	}
}

func TestTaxonomy_InvalidYAML(t *testing.T) {
	tax := NewTopicTaxonomy()
	if err := tax.LoadTaxonomyYAML([]byte("topics: [not a map")); err == nil {
		t.Fatal("expected parse error")
	}
}
