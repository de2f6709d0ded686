package voice

import (
	"fmt"
	"strings"
)

// Profile names a synthesis voice.
type Profile string

// Gender is the perceived gender a profile is voiced in.
type Gender string

const (
	Female Gender = "female"
	Male   Gender = "male"
)

const (
	Aoede  Profile = "Aoede"
	Puck   Profile = "Puck"
	Charon Profile = "Charon"
	Kore   Profile = "Kore"
	Fenrir Profile = "Fenrir"
	Leda   Profile = "Leda"
	Orus   Profile = "Orus"
	Zephyr Profile = "Zephyr"
)

var genders = map[Profile]Gender{
	Aoede:  Female,
	Puck:   Male,
	Charon: Male,
	Kore:   Female,
	Fenrir: Male,
	Leda:   Female,
	Orus:   Male,
	Zephyr: Female,
}

// All returns every profile in a stable order.
func All() []Profile {
	return []Profile{Aoede, Puck, Charon, Kore, Fenrir, Leda, Orus, Zephyr}
}

// Gender returns the profile's gender.
func (p Profile) Gender() Gender {
	return genders[p]
}

// Valid reports whether p is a known profile.
func (p Profile) Valid() bool {
	_, ok := genders[p]
	return ok
}

func (p Profile) String() string {
	return string(p)
}

// Parse matches a profile name case-insensitively, ignoring surrounding
// whitespace and punctuation that chat models tend to add.
func Parse(value string) (Profile, error) {
	cleaned := strings.Trim(strings.TrimSpace(value), "\"'`.*,:;!")
	for _, p := range All() {
		if strings.EqualFold(cleaned, string(p)) {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown voice profile %q", value)
}

// Describe renders the "Name : Gender" list used in classification prompts.
func Describe() string {
	parts := make([]string, 0, len(genders))
	for _, p := range All() {
		g := "Male"
		if p.Gender() == Female {
			g = "Female"
		}
		parts = append(parts, fmt.Sprintf("%s : %s", p, g))
	}
	return strings.Join(parts, ", ")
}
