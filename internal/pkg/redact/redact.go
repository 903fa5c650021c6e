// redact маскирует чувствительные данные перед записью в лог:
// e-mail аккаунта, bearer/refresh-токены и учётные данные прокси.
package redact

import (
	"net/url"
	"strconv"
	"strings"
)

// Email маскирует e-mail для логирования.
//
// Правила:
//   - строка должна содержать ровно один '@', иначе возвращается "***";
//   - локальная часть заменяется на первые два символа (по рунам) + "***";
//   - при длине локальной части ≤ 2 возвращается "***@<domain>".
//
// Пустая строка (API не вернул e-mail) превращается в "unknown".
func Email(s string) string {
	if s == "" {
		return "unknown"
	}

	if strings.Count(s, "@") != 1 {
		return "***"
	}

	i := strings.IndexByte(s, '@')
	local, domain := s[:i], s[i+1:]

	lr := []rune(local)
	if len(lr) > 2 {
		local = string(lr[:2]) + "***"
	} else {
		local = "***"
	}

	return local + "@" + domain
}

// Token возвращает безопасный «отпечаток» токена: первые 4 символа и длину.
// Достаточно, чтобы различать токены в логах, и бесполезно для атакующего.
//
//	""              -> "[EMPTY_TOKEN]"
//	"abc"           -> "[REDACTED_TOKEN len=3]"
//	"eyJhbGciOi..." -> "eyJh***[len=120]"
func Token(s string) string {
	switch {
	case s == "":
		return "[EMPTY_TOKEN]"
	case len(s) < 8:
		return "[REDACTED_TOKEN len=" + strconv.Itoa(len(s)) + "]"
	default:
		return s[:4] + "***[len=" + strconv.Itoa(len(s)) + "]"
	}
}

// ProxyURL возвращает адрес прокси без пароля. nil — "direct".
func ProxyURL(u *url.URL) string {
	if u == nil {
		return "direct"
	}

	return u.Redacted()
}
