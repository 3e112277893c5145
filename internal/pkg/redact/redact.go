// redact маскирует чувствительные значения перед логированием.
package redact

import "strings"

// Email оставляет два первых символа локальной части.
func Email(s string) string {
	local, domain, ok := strings.Cut(s, "@")
	if !ok || strings.Contains(domain, "@") {
		return "***"
	}

	if len(local) > 2 {
		local = local[:2] + "***"
	} else {
		local = "***"
	}

	return local + "@" + domain
}

// TokenTail оставляет последние 4 символа токена для корреляции в логах.
func TokenTail(tok string) string {
	if len(tok) <= 8 {
		return Token()
	}

	return "…" + tok[len(tok)-4:]
}

func Token() string { return "[REDACTED_TOKEN]" }
