package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFoldLetters(t *testing.T) {
	cases := map[string]string{
		"Đurđa":       "durda",
		"Šarić-Ćosić": "sariccosic",
		"Kovačević":   "kovacevic",
		"Müller":      "muller",
		"Weiß":        "weiss",
		"O'Brien":     "obrien",
		"":            "",
		"123":         "",
		"Ana Marija":  "anamarija",
		"ŽELJKO":      "zeljko",
	}
	for input, expected := range cases {
		assert.Equal(t, expected, FoldLetters(input), "input %q", input)
	}
}

func TestEmailLocalPart(t *testing.T) {
	assert.Equal(t, "mhorvat", EmailLocalPart("Marko", "Horvat"))
	assert.Equal(t, "dsaric", EmailLocalPart("Đurđa", "Šarić"))
	// empty last name falls back to the first name
	assert.Equal(t, "aana", EmailLocalPart("Ana", ""))
	// nothing foldable at all falls back to a fixed base
	assert.Equal(t, "student", EmailLocalPart("123", "456"))
}

func TestStudentEmail(t *testing.T) {
	assert.Equal(t, "mhorvat@student.edu.hr", StudentEmail("mhorvat", 0))
	assert.Equal(t, "mhorvat@student.edu.hr", StudentEmail("mhorvat", 1))
	assert.Equal(t, "mhorvat2@student.edu.hr", StudentEmail("mhorvat", 2))
	assert.Equal(t, "mhorvat13@student.edu.hr", StudentEmail("mhorvat", 13))
}

func TestIsStudentEmail(t *testing.T) {
	assert.True(t, IsStudentEmail("mhorvat@student.edu.hr"))
	assert.True(t, IsStudentEmail("MHORVAT@STUDENT.EDU.HR"))
	assert.False(t, IsStudentEmail("mhorvat@gmail.com"))
	assert.False(t, IsStudentEmail("mhorvat@uni.hr"))
}

func TestRandomJmbag(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		jmbag := RandomJmbag()
		assert.Len(t, jmbag, JmbagLength)
		for _, r := range jmbag {
			assert.True(t, r >= '0' && r <= '9')
		}
		seen[jmbag] = struct{}{}
	}
	// 100 draws from a 10^10 space should not all collide
	assert.Greater(t, len(seen), 1)
}
