// Package slug turns human readable lock names into canonical storage keys.
//
// A slug contains only lowercase ASCII letters, digits and single hyphens,
// never starts or ends with a hyphen and is at most MaxLength bytes long,
// which makes it usable as a file name, a Redis hash field and a SQL value.
package slug

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxLength is the maximum length of a slug in bytes.
const MaxLength = 200

const hashLength = 16

// letters that do not decompose into an ASCII base letter under NFKD.
var transliterations = map[rune]string{
	'ß': "ss", 'æ': "ae", 'Æ': "ae", 'ø': "o", 'Ø': "o", 'đ': "d", 'Đ': "d",
	'ł': "l", 'Ł': "l", 'œ': "oe", 'Œ': "oe", 'þ': "th", 'Þ': "th", 'ð': "d",
	'Ð': "d", 'ı': "i", 'ħ': "h", 'Ħ': "h", '&': "and", '@': "at",

	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d", 'е': "e", 'ё': "yo",
	'ж': "zh", 'з': "z", 'и': "i", 'й': "y", 'к': "k", 'л': "l", 'м': "m",
	'н': "n", 'о': "o", 'п': "p", 'р': "r", 'с': "s", 'т': "t", 'у': "u",
	'ф': "f", 'х': "h", 'ц': "c", 'ч': "ch", 'ш': "sh", 'щ': "sch", 'ъ': "",
	'ы': "y", 'ь': "", 'э': "e", 'ю': "yu", 'я': "ya", 'ј': "j", 'љ': "lj",
	'њ': "nj", 'ћ': "c", 'џ': "dz", 'є': "ye", 'і': "i", 'ї': "yi", 'ґ': "g",

	'α': "a", 'β': "b", 'γ': "g", 'δ': "d", 'ε': "e", 'ζ': "z", 'η': "i",
	'θ': "th", 'ι': "i", 'κ': "k", 'λ': "l", 'μ': "m", 'ν': "n", 'ξ': "ks",
	'ο': "o", 'π': "p", 'ρ': "r", 'σ': "s", 'ς': "s", 'τ': "t", 'υ': "y",
	'φ': "f", 'χ': "x", 'ψ': "ps", 'ω': "o",
}

// Make returns the canonical form of s. It is pure and idempotent:
// Make(Make(s)) == Make(s).
func Make(s string) string {
	s = transliterate(s)

	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(t, s); err == nil {
		s = folded
	}

	var sb strings.Builder
	sb.Grow(len(s))
	dash := false
	for _, r := range s {
		r = unicode.ToLower(r)
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if dash && sb.Len() > 0 {
				sb.WriteByte('-')
			}
			dash = false
			sb.WriteRune(r)
			continue
		}
		dash = true
	}

	return shorten(sb.String())
}

func transliterate(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if v, ok := transliterations[unicode.ToLower(r)]; ok {
			sb.WriteString(v)
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// shorten keeps slugs above MaxLength unique by replacing their tail with
// a hash of the whole slug.
func shorten(s string) string {
	if len(s) <= MaxLength {
		return s
	}
	sum := sha256.Sum256([]byte(s))
	prefix := strings.TrimRight(s[:MaxLength-hashLength-1], "-")
	return prefix + "-" + hex.EncodeToString(sum[:])[:hashLength]
}
