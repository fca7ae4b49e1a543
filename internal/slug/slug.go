// Package slug строит URL-безопасные идентификаторы заметок.
// Все функции чистые: одинаковый вход всегда даёт одинаковый результат.
package slug

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fallback используется, когда из заголовка не осталось ни одного ASCII-символа.
const Fallback = "note"

// Category возвращает slug категории: нижний регистр, пробельные серии -> "-".
func Category(category string) string {
	fields := strings.Fields(strings.ToLower(category))
	return strings.Join(fields, "-")
}

// Make строит базовый slug из заголовка: диакритика снимается,
// всё кроме [a-z0-9] схлопывается в один дефис, крайние дефисы отбрасываются.
func Make(title string) string {
	folded := fold(title)

	var b strings.Builder
	b.Grow(len(folded))
	pendingHyphen := false
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(unicode.ToLower(r))
		default:
			pendingHyphen = true
		}
	}
	if b.Len() == 0 {
		return Fallback
	}
	return b.String()
}

// Candidate возвращает n-й вариант slug: base, base-2, base-3, ...
func Candidate(base string, n int) string {
	if n <= 1 {
		return base
	}
	return base + "-" + strconv.Itoa(n)
}

// Pick выбирает первый свободный вариант base в порядке Candidate.
func Pick(base string, taken map[string]bool) string {
	for n := 1; ; n++ {
		c := Candidate(base, n)
		if !taken[c] {
			return c
		}
	}
}

// MakeSlug — slug для заголовка внутри категории: первый вариант,
// для которого taken(categorySlug, slug) ложно. Уникальность всё равно
// гарантирует хранилище при вставке.
func MakeSlug(categorySlug, title string, taken func(categorySlug, slug string) bool) string {
	base := Make(title)
	for n := 1; ; n++ {
		c := Candidate(base, n)
		if taken == nil || !taken(categorySlug, c) {
			return c
		}
	}
}

// fold снимает диакритические знаки: "Économie" -> "Economie".
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
