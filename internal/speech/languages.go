package speech

import (
	"fmt"
	"sort"
	"strings"
)

const DefaultLanguage = "english"

// Language is one entry of the fixed target-language set the API accepts.
type Language struct {
	Name string
	Code string
}

var languages = map[string]Language{
	"bengali":   {Name: "bengali", Code: "bn"},
	"english":   {Name: "english", Code: "en"},
	"gujarati":  {Name: "gujarati", Code: "gu"},
	"hindi":     {Name: "hindi", Code: "hi"},
	"kannada":   {Name: "kannada", Code: "kn"},
	"malayalam": {Name: "malayalam", Code: "ml"},
	"marathi":   {Name: "marathi", Code: "mr"},
	"tamil":     {Name: "tamil", Code: "ta"},
	"telugu":    {Name: "telugu", Code: "te"},
}

func LanguageNames() []string {
	names := make([]string, 0, len(languages))
	for name := range languages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func LookupLanguage(name string) (Language, bool) {
	lang, ok := languages[NormalizeLanguage(name)]
	return lang, ok
}

// NormalizeLanguage lowercases and trims the input; the empty string maps to
// the default language.
func NormalizeLanguage(input string) string {
	trimmed := strings.TrimSpace(strings.ToLower(input))
	if trimmed == "" {
		return DefaultLanguage
	}
	return trimmed
}

// ValidateLanguage returns the canonical language name or an error naming the
// accepted set.
func ValidateLanguage(input string) (string, error) {
	lang, ok := LookupLanguage(input)
	if !ok {
		return "", fmt.Errorf("unsupported language %q (supported: %s)", strings.TrimSpace(input), strings.Join(LanguageNames(), ", "))
	}
	return lang.Name, nil
}
