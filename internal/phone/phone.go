package phone

import (
	"regexp"
	"strings"
)

// Локальные мобильные номера: 09/05/04 + 7..8 цифр.
var mobileRe = regexp.MustCompile(`^(09|05|04)[0-9]{7,8}$`)

// Префиксы кода страны, которые сводим к локальному "0".
// Порядок важен: "00970" должен проверяться раньше "970".
var countryPrefixes = []string{"+970", "+972", "00970", "00972", "970", "972"}

// Normalize приводит произвольный ввод телефона к локальному виду:
// убирает всё, кроме цифр и ведущего "+", сводит код страны к "0"
// и оставляет первую непрерывную группу цифр.
// Идемпотентна на уже нормализованном номере.
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)

	var b strings.Builder
	for i, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else if r == '+' && i == 0 {
			b.WriteRune(r)
		}
	}
	s = b.String()

	for _, p := range countryPrefixes {
		if strings.HasPrefix(s, p) {
			s = "0" + s[len(p):]
			break
		}
	}

	start := -1
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			start = i
			break
		}
	}
	if start < 0 {
		return ""
	}
	end := start
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	return s[start:end]
}

// IsValidMobile проверяет нормализованный номер на локальный мобильный паттерн.
func IsValidMobile(s string) bool {
	return mobileRe.MatchString(s)
}
