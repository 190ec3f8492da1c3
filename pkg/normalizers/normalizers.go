// Package normalizers provides text canonicalization for carrier names, labels and locations
package normalizers

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalizer is a function that normalizes a string value
type Normalizer func(string) string

// registry holds all registered normalizers
var registry = make(map[string]Normalizer)

func init() {
	Register("lowercase", Lowercase)
	Register("strip_accents", StripAccents)
	Register("collapse_whitespace", CollapseWhitespace)
	Register("expand_abbreviations", ExpandAbbreviations)
	Register("label", NormalizeLabel)
}

// Register adds a normalizer to the registry
func Register(name string, fn Normalizer) {
	registry[name] = fn
}

// Apply applies a named normalizer to a value
func Apply(value, normalizer string) string {
	fn, ok := registry[normalizer]
	if !ok {
		return value
	}
	return fn(value)
}

// ApplyChain applies multiple normalizers in sequence
func ApplyChain(value string, normalizers ...string) string {
	result := value
	for _, name := range normalizers {
		result = Apply(result, name)
	}
	return result
}

// Abbreviations is the shared domain abbreviation table. Keys are matched as whole
// words after accent stripping and lowercasing, with an optional trailing dot.
// No expansion may itself be a key.
var Abbreviations = map[string]string{
	"av":   "avenida",
	"avda": "avenida",
	"gral": "general",
	"cam":  "camara",
	"pje":  "pasaje",
	"bv":   "bulevar",
	"bvd":  "bulevar",
	"pte":  "presidente",
	"cnel": "coronel",
	"tte":  "teniente",
	"dr":   "doctor",
	"ing":  "ingeniero",
	"sta":  "santa",
	"sto":  "santo",
	"prov": "provincia",
}

var abbreviationPattern = compileAbbreviations(Abbreviations)

var whitespacePattern = regexp.MustCompile(`\s+`)

func compileAbbreviations(table map[string]string) *regexp.Regexp {
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, regexp.QuoteMeta(k))
	}
	return regexp.MustCompile(`\b(` + strings.Join(keys, "|") + `)\b\.?`)
}

// Normalize is the canonical form used for every comparison: accents stripped,
// lowercased, abbreviations expanded and whitespace collapsed. It is idempotent.
func Normalize(s string) string {
	return ApplyChain(s, "lowercase", "strip_accents", "expand_abbreviations", "collapse_whitespace")
}

// Lowercase converts string to lowercase
func Lowercase(s string) string {
	return strings.ToLower(s)
}

// StripAccents removes combining marks, turning "Martín" into "Martin"
func StripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return result
}

// CollapseWhitespace replaces whitespace runs with a single space and trims
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
}

// ExpandAbbreviations replaces whole-word abbreviations from the shared table.
// Input is expected to be lowercase. "cam.central" becomes "camara central".
func ExpandAbbreviations(s string) string {
	matches := abbreviationPattern.FindAllStringIndex(s, -1)
	if len(matches) == 0 {
		return s
	}

	var result strings.Builder
	last := 0
	for _, m := range matches {
		result.WriteString(s[last:m[0]])
		word := s[m[0]:m[1]]
		result.WriteString(Abbreviations[strings.TrimSuffix(word, ".")])
		if strings.HasSuffix(word, ".") && m[1] < len(s) && isWordByte(s[m[1]]) {
			result.WriteByte(' ')
		}
		last = m[1]
	}
	result.WriteString(s[last:])

	return result.String()
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// NormalizeLabel reduces a field label such as "  • Tipo de Tarea :" to "tipo de tarea".
// Abbreviations are not expanded.
func NormalizeLabel(s string) string {
	s = StripAccents(strings.ToLower(s))

	var result strings.Builder
	prevSpace := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			result.WriteRune(r)
			prevSpace = false
		} else if unicode.IsSpace(r) || r == '_' || r == '-' {
			if !prevSpace {
				result.WriteRune(' ')
				prevSpace = true
			}
		}
	}

	return strings.TrimSpace(result.String())
}
