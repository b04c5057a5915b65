package spaced_repetition

import (
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// itemNamespace scopes the name-based UUIDs generated for vocabulary items.
var itemNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://chirpolly.app/vocabulary"))

// Canonical returns the comparison form of a word: NFC-normalized, case-folded,
// with surrounding whitespace trimmed and inner runs collapsed to one space.
func Canonical(word string) string {
	word = strings.Join(strings.Fields(word), " ")
	return cases.Fold().String(norm.NFC.String(word))
}

// ItemID derives the stable identifier of a word within a language.
// Two spellings with the same canonical form share an ID; the same word in two
// languages does not.
func ItemID(language, word string) string {
	name := strings.ToLower(strings.TrimSpace(language)) + "\x00" + Canonical(word)
	return uuid.NewSHA1(itemNamespace, []byte(name)).String()
}
