// Package validator implements the password complexity rules enforced by
// the account policy: length bounds, character classes, common-password and
// pattern checks, plus a coarse strength estimate for UI feedback.
// Пакет validator реализует правила сложности пароля, задаваемые политикой
// аккаунтов: границы длины, классы символов, проверки на распространённые
// пароли и шаблоны, а также грубую оценку силы для обратной связи в UI.
package validator

import (
	"strconv"
	"strings"
	"unicode"
)

// PasswordRequirements defines the complexity rules a candidate password
// must satisfy. A zero MaxLength disables the upper length bound.
// PasswordRequirements определяет правила сложности, которым должен
// удовлетворять пароль-кандидат. Нулевой MaxLength отключает верхнюю границу.
type PasswordRequirements struct {
	MinLength        int  // Minimum length / Минимальная длина
	MaxLength        int  // Maximum length, 0 = unbounded / Максимальная длина, 0 = без ограничения
	RequireUppercase bool // Need an uppercase letter / Нужна заглавная буква
	RequireLowercase bool // Need a lowercase letter / Нужна строчная буква
	RequireDigit     bool // Need a digit / Нужна цифра
	RequireSpecial   bool // Need punctuation or a symbol / Нужен знак пунктуации или символ
	DisallowCommon   bool // Reject well-known passwords / Отклонять общеизвестные пароли
	DisallowSequence bool // Reject runs like 1234 or qwer / Отклонять последовательности вида 1234 или qwer
}

// DefaultPasswordRequirements returns the baseline rules applied when no
// policy override is in effect.
// DefaultPasswordRequirements возвращает базовые правила, применяемые при
// отсутствии переопределений политики.
func DefaultPasswordRequirements() PasswordRequirements {
	return PasswordRequirements{
		MinLength:        8,
		MaxLength:        128,
		RequireUppercase: true,
		RequireLowercase: true,
		RequireDigit:     true,
		RequireSpecial:   true,
		DisallowCommon:   true,
		DisallowSequence: true,
	}
}

// PasswordValidationResult reports every rule the candidate failed along
// with its estimated strength. Errors is empty when Valid is true.
// PasswordValidationResult сообщает все нарушенные кандидатом правила вместе
// с оценкой его силы. Errors пуст, когда Valid равен true.
type PasswordValidationResult struct {
	Valid    bool             // All rules satisfied / Все правила выполнены
	Errors   []string         // Failed-rule messages / Сообщения о нарушенных правилах
	Strength PasswordStrength // Estimated strength / Оценка силы
}

// ValidatePassword checks a candidate against the given requirements and
// collects every violation rather than stopping at the first one.
// ValidatePassword проверяет кандидата по заданным требованиям и собирает
// все нарушения, а не останавливается на первом.
func ValidatePassword(password string, req PasswordRequirements) PasswordValidationResult {
	result := PasswordValidationResult{
		Errors:   []string{},
		Strength: CheckPasswordStrength(password),
	}

	if len(password) < req.MinLength {
		result.Errors = append(result.Errors,
			"Password must be at least "+strconv.Itoa(req.MinLength)+" characters long")
	}
	if req.MaxLength > 0 && len(password) > req.MaxLength {
		result.Errors = append(result.Errors,
			"Password must be at most "+strconv.Itoa(req.MaxLength)+" characters long")
	}

	classes := classesOf(password)
	if req.RequireUppercase && !classes.upper {
		result.Errors = append(result.Errors, "Password must contain at least one uppercase letter")
	}
	if req.RequireLowercase && !classes.lower {
		result.Errors = append(result.Errors, "Password must contain at least one lowercase letter")
	}
	if req.RequireDigit && !classes.digit {
		result.Errors = append(result.Errors, "Password must contain at least one digit")
	}
	if req.RequireSpecial && !classes.special {
		result.Errors = append(result.Errors, "Password must contain at least one special character (!@#$%^&*...)")
	}

	if req.DisallowCommon && isCommonPassword(password) {
		result.Errors = append(result.Errors, "Password is too common, please choose a more unique password")
	}
	if req.DisallowSequence && hasSequentialChars(password, 4) {
		result.Errors = append(result.Errors, "Password contains sequential characters (e.g., 1234, abcd)")
	}
	// Long same-character runs are rejected regardless of policy.
	// Длинные серии одного символа отклоняются независимо от политики.
	if hasRepeatedChars(password, 4) {
		result.Errors = append(result.Errors, "Password contains too many repeated characters")
	}

	result.Valid = len(result.Errors) == 0
	return result
}

// PasswordStrength is a coarse four-level strength estimate.
// PasswordStrength — грубая четырёхуровневая оценка силы.
type PasswordStrength int

const (
	PasswordWeak   PasswordStrength = iota // Weak / Слабый
	PasswordFair                           // Fair / Средний
	PasswordGood                           // Good / Хороший
	PasswordStrong                         // Strong / Сильный
)

// String returns the wire representation used in API responses.
// String возвращает представление, используемое в ответах API.
func (ps PasswordStrength) String() string {
	switch ps {
	case PasswordStrong:
		return "strong"
	case PasswordGood:
		return "good"
	case PasswordFair:
		return "fair"
	default:
		return "weak"
	}
}

// CheckPasswordStrength scores a password by length and character variety.
// Length contributes up to 3 points (8, 12 and 16 byte thresholds), each
// character class contributes 1; 2+ is fair, 4+ good, 6+ strong.
// CheckPasswordStrength оценивает пароль по длине и разнообразию символов.
// Длина даёт до 3 баллов (пороги 8, 12 и 16 байт), каждый класс символов
// даёт 1; 2+ — средний, 4+ — хороший, 6+ — сильный.
func CheckPasswordStrength(password string) PasswordStrength {
	score := lengthScore(len(password)) + classesOf(password).count()
	switch {
	case score >= 6:
		return PasswordStrong
	case score >= 4:
		return PasswordGood
	case score >= 2:
		return PasswordFair
	default:
		return PasswordWeak
	}
}

func lengthScore(length int) int {
	score := 0
	for _, threshold := range []int{8, 12, 16} {
		if length >= threshold {
			score++
		}
	}
	return score
}

// charClasses records which character classes appear in a password.
type charClasses struct {
	upper, lower, digit, special bool
}

func classesOf(password string) charClasses {
	var c charClasses
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			c.upper = true
		case unicode.IsLower(r):
			c.lower = true
		case unicode.IsDigit(r):
			c.digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			c.special = true
		}
	}
	return c
}

func (c charClasses) count() int {
	n := 0
	for _, present := range []bool{c.upper, c.lower, c.digit, c.special} {
		if present {
			n++
		}
	}
	return n
}

// commonPasswords holds lowercase forms of passwords seen in breach corpora
// often enough that no account should carry them.
// commonPasswords содержит нижний регистр паролей, встречающихся в утечках
// настолько часто, что ни один аккаунт не должен их использовать.
var commonPasswords = func() map[string]struct{} {
	list := []string{
		"password", "password1", "password123", "password1!",
		"123456", "12345678", "123456789", "1234567890",
		"111111", "000000", "654321", "987654321", "abc123",
		"qwerty", "qwerty123", "qwertyuiop",
		"letmein", "welcome", "changeme", "trustno1", "iloveyou",
		"admin", "admin123", "root", "toor",
		"pass", "test", "guest", "master", "hello",
		"dragon", "baseball", "sunshine", "princess", "football",
		"shadow", "superman", "michael", "ninja", "mustang",
		"passw0rd", "p@ssw0rd", "p@ssword",
	}
	m := make(map[string]struct{}, len(list))
	for _, p := range list {
		m[p] = struct{}{}
	}
	return m
}()

// isCommonPassword matches case-insensitively against the breach list.
// isCommonPassword сравнивает со списком утечек без учёта регистра.
func isCommonPassword(password string) bool {
	_, found := commonPasswords[strings.ToLower(password)]
	return found
}

// keyboardRows lists adjacent-key runs on Latin and Russian layouts.
// keyboardRows перечисляет ряды соседних клавиш латинской и русской раскладок.
var keyboardRows = []string{
	"qwerty", "asdfgh", "zxcvbn", "qazwsx", "!@#$%^",
	"йцукен", "фывапр", "ячсмит",
}

// hasSequentialChars reports whether the password contains an ascending or
// descending run of minSeqLength consecutive code points, or the start of a
// keyboard row of that length. Comparison is case-insensitive.
// hasSequentialChars сообщает, содержит ли пароль восходящую или нисходящую
// серию из minSeqLength последовательных кодовых точек либо начало
// клавиатурного ряда такой длины. Сравнение без учёта регистра.
func hasSequentialChars(password string, minSeqLength int) bool {
	if len(password) < minSeqLength {
		return false
	}

	lowered := strings.ToLower(password)
	runes := []rune(lowered)

	ascRun, descRun := 1, 1
	for i := 1; i < len(runes); i++ {
		if runes[i] == runes[i-1]+1 {
			ascRun++
		} else {
			ascRun = 1
		}
		if runes[i] == runes[i-1]-1 {
			descRun++
		} else {
			descRun = 1
		}
		if ascRun >= minSeqLength || descRun >= minSeqLength {
			return true
		}
	}

	for _, row := range keyboardRows {
		if len(row) >= minSeqLength && strings.Contains(lowered, row[:minSeqLength]) {
			return true
		}
	}
	return false
}

// hasRepeatedChars reports whether any single character repeats maxRepeats
// or more times in a row.
// hasRepeatedChars сообщает, повторяется ли какой-либо символ maxRepeats
// или более раз подряд.
func hasRepeatedChars(password string, maxRepeats int) bool {
	runes := []rune(password)
	run := 1
	for i := 1; i < len(runes); i++ {
		if runes[i] == runes[i-1] {
			run++
			if run >= maxRepeats {
				return true
			}
		} else {
			run = 1
		}
	}
	return false
}
