package judge

import (
	"sort"
	"strings"
)

// Language is a language the contest accepts, keyed by a short slug.
type Language struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
	ID   int    `json:"judge_language_id"`
}

var languages = map[string]Language{
	"c":          {Slug: "c", Name: "C (GCC 9.2.0)", ID: 50},
	"cpp":        {Slug: "cpp", Name: "C++ (GCC 9.2.0)", ID: 54},
	"go":         {Slug: "go", Name: "Go (1.13.5)", ID: 60},
	"java":       {Slug: "java", Name: "Java (OpenJDK 13.0.1)", ID: 62},
	"javascript": {Slug: "javascript", Name: "JavaScript (Node.js 12.14.0)", ID: 63},
	"python":     {Slug: "python", Name: "Python (3.8.1)", ID: 71},
}

// LookupLanguage resolves a slug case-insensitively.
func LookupLanguage(slug string) (Language, bool) {
	lang, ok := languages[strings.ToLower(strings.TrimSpace(slug))]
	return lang, ok
}

// Languages returns the supported languages sorted by slug.
func Languages() []Language {
	out := make([]Language, 0, len(languages))
	for _, l := range languages {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out
}
