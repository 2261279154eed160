// Package identity holds the pure generators for student identifiers. All
// functions are stateless; uniqueness is the caller's concern (generate,
// check against storage, retry).
package identity

import (
	"crypto/rand"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// StudentEmailDomain is the institutional domain every student email ends in.
const StudentEmailDomain = "student.edu.hr"

// JmbagLength is the fixed length of an enrollment number.
const JmbagLength = 10

var diacriticOverrides = map[rune]string{
	'đ': "d", 'Đ': "d",
	'ß': "ss",
}

// FoldLetters lowercases s, strips diacritics and drops every non-letter.
// "Đurđa Šarić-Ćosić" becomes "durdasariccosic".
func FoldLetters(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	for _, r := range s {
		if repl, ok := diacriticOverrides[r]; ok {
			b.WriteString(repl)
			continue
		}
		b.WriteRune(r)
	}

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, b.String())
	if err != nil {
		folded = b.String()
	}

	var out strings.Builder
	for _, r := range strings.ToLower(folded) {
		if r >= 'a' && r <= 'z' {
			out.WriteRune(r)
		}
	}
	return out.String()
}

// EmailLocalPart builds the base local part of a student email: first-name
// initial plus folded last name, falling back to the first name and finally
// to "student" when folding leaves nothing usable.
func EmailLocalPart(firstName, lastName string) string {
	initial := FoldLetters(firstName)
	if len(initial) > 1 {
		initial = initial[:1]
	}
	last := FoldLetters(lastName)
	if last == "" {
		last = FoldLetters(firstName)
	}
	base := initial + last
	if base == "" {
		base = "student"
	}
	return base
}

// StudentEmail composes a candidate email address. A suffix below 2 means no
// suffix: the first collision retry starts at 2, matching the convention of
// "mhorvat", "mhorvat2", "mhorvat3", ...
func StudentEmail(localPart string, suffix int) string {
	if suffix >= 2 {
		return fmt.Sprintf("%s%d@%s", localPart, suffix, StudentEmailDomain)
	}
	return localPart + "@" + StudentEmailDomain
}

// IsStudentEmail reports whether the address belongs to the student domain.
func IsStudentEmail(email string) bool {
	return strings.HasSuffix(strings.ToLower(email), "@"+StudentEmailDomain)
}

// RandomJmbag returns a random 10-digit enrollment number candidate.
func RandomJmbag() string {
	buf := make([]byte, JmbagLength)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failure is not recoverable here; a zero candidate
		// still round-trips through the uniqueness check.
		for i := range buf {
			buf[i] = 0
		}
	}
	digits := make([]byte, JmbagLength)
	for i, b := range buf {
		digits[i] = '0' + b%10
	}
	return string(digits)
}
