package troupe

import (
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ──────────────────────────────────────────────
// Topic taxonomy — fixed small category set, keyword matched
// ──────────────────────────────────────────────

// TopicTaxonomy classifies message text into a fixed topic category set
// via keyword matching. Detection runs on every event, so matching is a
// single lowercase pass plus substring checks.
type TopicTaxonomy struct {
	categories map[string][]string
}

// NewTopicTaxonomy returns the built-in taxonomy.
func NewTopicTaxonomy() *TopicTaxonomy {
	return &TopicTaxonomy{categories: defaultTaxonomy()}
}

func defaultTaxonomy() map[string][]string {
	return map[string][]string{
		"gaming":        {"game", "gaming", "play", "quest", "boss fight", "speedrun", "console", "fps", "rpg", "minecraft", "elden ring"},
		"technology":    {"code", "coding", "programming", "computer", "software", "hardware", "gpu", "linux", "server", "api", "tech"},
		"music":         {"music", "song", "album", "band", "concert", "playlist", "guitar", "piano", "lyrics"},
		"movies":        {"movie", "film", "cinema", "trailer", "netflix", "series", "episode", "anime"},
		"sports":        {"football", "soccer", "basketball", "tennis", "workout", "gym", "match", "league", "goal"},
		"food":          {"food", "cooking", "recipe", "dinner", "lunch", "breakfast", "restaurant", "pizza", "coffee"},
		"travel":        {"travel", "trip", "flight", "vacation", "hotel", "city", "country", "beach"},
		"science":       {"science", "physics", "chemistry", "biology", "space", "nasa", "experiment", "research"},
		"art":           {"art", "drawing", "painting", "sketch", "design", "illustration"},
		"books":         {"book", "novel", "reading", "author", "chapter", "library"},
		"politics":      {"politics", "election", "government", "policy", "president", "parliament"},
		"weather":       {"weather", "rain", "snow", "sunny", "storm", "forecast"},
		"pets":          {"cat", "dog", "pet", "puppy", "kitten", "hamster"},
		"fashion":       {"fashion", "outfit", "clothes", "style", "sneakers", "dress"},
		"health":        {"health", "sleep", "doctor", "tired", "sick", "medicine", "therapy"},
		"work":          {"work", "job", "boss", "meeting", "deadline", "office", "salary"},
		"relationships": {"friend", "girlfriend", "boyfriend", "family", "date", "crush", "breakup"},
		"memes":         {"meme", "lol", "lmao", "shitpost", "copypasta"},
	}
}

// taxonomyFile is the YAML override shape: category -> keyword list.
type taxonomyFile struct {
	Topics map[string][]string `yaml:"topics"`
}

// LoadTaxonomyYAML merges category keyword sets from YAML into the
// taxonomy. Existing categories are extended, new ones added. Keywords
// are stored lowercase.
func (t *TopicTaxonomy) LoadTaxonomyYAML(data []byte) error {
	var f taxonomyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return err
	}
	for cat, words := range f.Topics {
		existing := t.categories[cat]
		seen := make(map[string]bool, len(existing))
		for _, w := range existing {
			seen[w] = true
		}
		for _, w := range words {
			w = strings.ToLower(strings.TrimSpace(w))
			if w != "" && !seen[w] {
				existing = append(existing, w)
				seen[w] = true
			}
		}
		t.categories[cat] = existing
	}
	return nil
}

// Detect returns the matched topic categories, sorted alphabetically for
// deterministic downstream iteration.
func (t *TopicTaxonomy) Detect(text string) []string {
	lower := strings.ToLower(text)
	var matched []string
	for cat, words := range t.categories {
		for _, w := range words {
			if containsWord(lower, w) {
				matched = append(matched, cat)
				break
			}
		}
	}
	sort.Strings(matched)
	return matched
}

// containsWord does a substring match that refuses to fire inside a
// longer word for short keywords ("art" must not match "start").
func containsWord(lower, word string) bool {
	idx := 0
	for {
		i := strings.Index(lower[idx:], word)
		if i < 0 {
			return false
		}
		i += idx
		before := i == 0 || !isWordRune(lower[i-1])
		afterIdx := i + len(word)
		after := afterIdx >= len(lower) || !isWordRune(lower[afterIdx])
		if before && after {
			return true
		}
		idx = i + 1
		if idx >= len(lower) {
			return false
		}
	}
}

func isWordRune(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}
