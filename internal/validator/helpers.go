package validator

import (
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	RgxPhoneNumber = regexp.MustCompile(`^\+[1-9]\d{6,14}$`)

	// 0x-prefixed, 20-byte hex EVM address
	RgxWalletAddress = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

	// 0x-prefixed, 32-byte hex transaction hash
	RgxTxHash = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

	RgxReferralCode = regexp.MustCompile(`^[A-Z0-9]{6,12}$`)
)

func NotBlank(value string) bool {
	return strings.TrimSpace(value) != ""
}

func MinRunes(value string, n int) bool {
	return utf8.RuneCountInString(value) >= n
}

func MaxRunes(value string, n int) bool {
	return utf8.RuneCountInString(value) <= n
}

func Between[T int | int64 | float64](value, min, max T) bool {
	return value >= min && value <= max
}

func Matches(value string, rx *regexp.Regexp) bool {
	return rx.MatchString(value)
}

func In[T comparable](value T, safelist ...T) bool {
	for i := range safelist {
		if value == safelist[i] {
			return true
		}
	}
	return false
}

func IsEmail(value string) bool {
	if len(value) > 254 {
		return false
	}

	_, err := mail.ParseAddress(value)
	return err == nil
}
