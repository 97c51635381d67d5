// Package random generates cryptographically secure random tokens.
// Пакет random генерирует криптографически стойкие случайные токены.
//
// Every secret in the system (session keys, pre-auth tickets, one-time
// codes, backup codes) comes from this package; math/rand is never used
// for security material.
// Каждый секрет системы (ключи сессий, pre-auth тикеты, одноразовые коды,
// резервные коды) создаётся этим пакетом; math/rand никогда не
// используется для секретного материала.
package random

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
)

// alphanumericUpper is the alphabet for backup codes. Uppercase only so
// users can read codes back without case confusion.
// alphanumericUpper — алфавит резервных кодов. Только верхний регистр,
// чтобы пользователи могли прочитать коды без путаницы регистра.
const alphanumericUpper = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Hex returns n random bytes encoded as a lowercase hex string of
// length 2n.
// Hex возвращает n случайных байт в виде шестнадцатеричной строки в
// нижнем регистре длиной 2n.
func Hex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Digits returns a string of n random decimal digits with uniform
// distribution, suitable for one-time codes.
// Digits возвращает строку из n случайных десятичных цифр с равномерным
// распределением, подходящую для одноразовых кодов.
func Digits(n int) (string, error) {
	return fromAlphabet("0123456789", n)
}

// AlphanumericUpper returns a string of n random uppercase letters and
// digits, used for backup codes.
// AlphanumericUpper возвращает строку из n случайных заглавных букв и
// цифр, используется для резервных кодов.
func AlphanumericUpper(n int) (string, error) {
	return fromAlphabet(alphanumericUpper, n)
}

// fromAlphabet draws n characters uniformly from the alphabet using
// rejection-free modular sampling via crypto/rand.Int.
// fromAlphabet равномерно выбирает n символов из алфавита с помощью
// crypto/rand.Int без смещения по модулю.
func fromAlphabet(alphabet string, n int) (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("read random index: %w", err)
		}
		out[i] = alphabet[idx.Int64()]
	}
	return string(out), nil
}
