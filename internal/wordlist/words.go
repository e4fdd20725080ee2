// Package wordlist turns the opaque rendezvous address spec.md §3
// requires both peers to agree on byte-for-byte into something a human
// can read over a phone call or type without a typo: a short run of
// dictionary words joined by hyphens, e.g. "amber-quest-harp".
package wordlist

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// Words is a curated list of 208 memorable, distinct words for address
// generation. Each word is easy to spell, pronounce, and remember.
var Words = []string{
	// Animals
	"alpha", "bear", "cat", "dog", "eagle", "fox", "goat", "hawk",
	"ibis", "jay", "koala", "lion", "moose", "newt", "owl", "panda",
	"quail", "raven", "snake", "tiger", "urchin", "viper", "wolf", "xerus",
	"yak", "zebra", "ape", "bat", "crane", "deer", "elk", "frog",
	// Nature
	"amber", "brook", "cliff", "delta", "ember", "frost", "grove", "hill",
	"isle", "jade", "kelp", "lake", "moss", "north", "ocean", "peak",
	"quartz", "river", "storm", "tide", "umbra", "valley", "wave", "xerox",
	"yield", "zenith", "aurora", "breeze", "canyon", "dune", "east", "fjord",
	// Colors
	"azure", "bronze", "coral", "denim", "ebony", "fawn", "gold", "hazel",
	"indigo", "jet", "khaki", "lime", "maroon", "navy", "olive", "pink",
	"rust", "sage", "tan", "umber", "violet", "wine", "xanadu", "yellow",
	// Objects
	"arrow", "blade", "crown", "drum", "echo", "flame", "gear", "harp",
	"iron", "jewel", "kite", "lamp", "mirror", "nail", "orb", "prism",
	"quill", "ring", "sword", "torch", "unity", "vault", "wheel", "xray",
	// Actions
	"blast", "climb", "dash", "drift", "flash", "glide", "hover", "jump",
	"knock", "launch", "march", "nudge", "orbit", "pulse", "quest", "rush",
	"shift", "trace", "twist", "spin", "whirl", "zoom", "bounce", "coast",
	// Food
	"apple", "bread", "cherry", "date", "egg", "fig", "grape", "honey",
	"ice", "jam", "kiwi", "lemon", "mango", "nut", "orange", "peach",
	"rice", "sugar", "tea", "vanilla", "wheat", "yeast", "basil", "cocoa",
	// Music
	"bass", "chord", "flute", "forte", "groove", "hymn", "jazz", "key",
	"lyric", "melody", "note", "opera", "piano", "rhythm", "scale", "tempo",
	"tune", "verse", "waltz", "aria", "beat", "cello", "duet", "encore",
	// Space
	"comet", "cosmos", "earth", "galaxy", "lunar", "mars", "nebula", "nova",
	"plasma", "pluto", "quasar", "rocket", "saturn", "star", "sun", "terra",
	"uranus", "venus", "void", "warp", "meteor", "astro", "beam", "cosmic",
}

// wordSet is built once at package init so ValidateCode doesn't
// reconstruct a 208-entry map on every call from the join path.
var wordSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(Words))
	for _, w := range Words {
		set[w] = struct{}{}
	}
	return set
}()

// minWords and maxWords bound the number of hyphenated words
// ValidateCode will accept in an address typed by a joiner.
const (
	minWords = 2
	maxWords = 6
)

// GenerateCode produces a fresh rendezvous address of numWords words,
// each drawn uniformly at random from Words. numWords <= 0 defaults to
// 3, which ValidateCode always accepts.
func GenerateCode(numWords int) (string, error) {
	if numWords <= 0 {
		numWords = 3
	}

	max := big.NewInt(int64(len(Words)))
	words := make([]string, numWords)
	for i := range words {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("wordlist: draw word %d: %w", i, err)
		}
		words[i] = Words[idx.Int64()]
	}

	return strings.Join(words, "-"), nil
}

// ValidateCode reports whether code is a well-formed rendezvous
// address: 2 to 6 hyphen-joined words, each present in Words
// (case-insensitively). It does not normalize code first — callers
// that accept user input should run NormalizeCode before validating.
func ValidateCode(code string) bool {
	parts := strings.Split(code, "-")
	if len(parts) < minWords || len(parts) > maxWords {
		return false
	}

	for _, part := range parts {
		if _, ok := wordSet[strings.ToLower(part)]; !ok {
			return false
		}
	}
	return true
}

// NormalizeCode lowercases and trims a rendezvous address as typed by
// a user, so "Amber-Quest-Harp " and "amber-quest-harp" validate
// and derive identically.
func NormalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}
