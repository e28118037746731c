package models

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Address is a raw or normalized US street address as entered by a user.
type Address struct {
	Street string `json:"street" validate:"required"`
	City   string `json:"city" validate:"required"`
	State  string `json:"state" validate:"required"`
	Zip    string `json:"zip" validate:"required"`
}

// Normalize returns the canonical form of the address used for lookup and storage:
// street and city title-cased, state upper-cased, zip trimmed. It is idempotent.
func (a Address) Normalize() Address {
	return Address{
		Street: titleCase(a.Street),
		City:   titleCase(a.City),
		State:  strings.ToUpper(collapseSpaces(a.State)),
		Zip:    strings.TrimSpace(a.Zip),
	}
}

// titleCase capitalizes the first letter of every word that starts with a
// letter; words led by a digit ("5th", "42nd") are lower-cased. A Caser is not
// safe for concurrent use, so a fresh one is built each time.
func titleCase(s string) string {
	caser := cases.Title(language.AmericanEnglish)
	words := strings.Fields(s)
	for i, w := range words {
		if r, _ := utf8.DecodeRuneInString(w); unicode.IsLetter(r) {
			words[i] = caser.String(w)
		} else {
			words[i] = strings.ToLower(w)
		}
	}
	return strings.Join(words, " ")
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
