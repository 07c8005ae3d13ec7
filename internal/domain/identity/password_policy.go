package identity

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// PasswordPolicy holds the strength rules applied on registration and reset
type PasswordPolicy struct {
	MinLength     int
	MaxSimilarity float64
	common        map[string]struct{}
}

// DefaultPasswordPolicy returns the policy used by the API: six characters
// minimum plus similarity, common-password and numeric-only checks.
func DefaultPasswordPolicy() *PasswordPolicy {
	common := make(map[string]struct{}, len(commonPasswords))
	for _, p := range commonPasswords {
		common[p] = struct{}{}
	}
	return &PasswordPolicy{
		MinLength:     6,
		MaxSimilarity: 0.7,
		common:        common,
	}
}

var attributeSplit = regexp.MustCompile(`\W+`)

// Check returns one message per violated rule, nil when the password passes.
// attributes are the user's own fields (username, email, names).
func (p *PasswordPolicy) Check(password string, attributes ...string) []string {
	var msgs []string

	if password == "" {
		return []string{"This field may not be blank"}
	}
	if len([]rune(password)) < p.MinLength {
		msgs = append(msgs, "Ensure this field has at least "+strconv.Itoa(p.MinLength)+" characters")
	}
	if p.tooSimilar(password, attributes) {
		msgs = append(msgs, "The password is too similar to the user's details")
	}
	if _, ok := p.common[strings.ToLower(strings.TrimSpace(password))]; ok {
		msgs = append(msgs, "This password is too common")
	}
	if isNumeric(password) {
		msgs = append(msgs, "This password is entirely numeric")
	}
	return msgs
}

func (p *PasswordPolicy) tooSimilar(password string, attributes []string) bool {
	pw := strings.ToLower(password)
	for _, attr := range attributes {
		value := strings.ToLower(strings.TrimSpace(attr))
		if value == "" {
			continue
		}
		if exceedsLengthRatio(pw, p.MaxSimilarity, value) {
			continue
		}
		parts := append(attributeSplit.Split(value, -1), value)
		for _, part := range parts {
			if part == "" {
				continue
			}
			if quickRatio(pw, part) >= p.MaxSimilarity {
				return true
			}
		}
	}
	return false
}

// exceedsLengthRatio skips attributes too short to be meaningfully similar
// to a much longer password.
func exceedsLengthRatio(password string, maxSimilarity float64, value string) bool {
	pwdLen := len([]rune(password))
	valueLen := len([]rune(value))
	return pwdLen >= 10*valueLen && float64(valueLen) < maxSimilarity/2*float64(pwdLen)
}

// quickRatio is an upper bound on the matching-blocks ratio of two strings:
// twice the shared character count over the total length.
func quickRatio(a, b string) float64 {
	total := len([]rune(a)) + len([]rune(b))
	if total == 0 {
		return 1
	}
	avail := make(map[rune]int)
	for _, r := range b {
		avail[r]++
	}
	matches := 0
	for _, r := range a {
		if avail[r] > 0 {
			avail[r]--
			matches++
		}
	}
	return 2 * float64(matches) / float64(total)
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}

var commonPasswords = []string{
	"123456", "password", "12345678", "qwerty", "123456789", "12345", "1234", "111111",
	"1234567", "dragon", "123123", "baseball", "abc123", "football", "monkey", "letmein",
	"696969", "shadow", "master", "666666", "qwertyuiop", "123321", "mustang", "1234567890",
	"michael", "654321", "superman", "1qaz2wsx", "7777777", "121212", "000000", "qazwsx",
	"123qwe", "killer", "trustno1", "jordan", "jennifer", "zxcvbnm", "asdfgh", "hunter",
	"buster", "soccer", "harley", "batman", "andrew", "tigger", "sunshine", "iloveyou",
	"2000", "charlie", "robert", "thomas", "hockey", "ranger", "daniel", "starwars",
	"klaster", "112233", "george", "computer", "michelle", "jessica", "pepper", "1111",
	"zxcvbn", "555555", "11111111", "131313", "freedom", "777777", "pass", "maggie",
	"159753", "aaaaaa", "ginger", "princess", "joshua", "cheese", "amanda", "summer",
	"love", "ashley", "nicole", "chelsea", "biteme", "matthew", "access", "yankees",
	"987654321", "dallas", "austin", "thunder", "taylor", "matrix", "password1", "passw0rd",
	"welcome", "admin", "administrator", "qwerty123", "1q2w3e4r", "1q2w3e4r5t", "changeme",
	"secret", "letmein1", "welcome1", "password123", "abcdef", "abcd1234", "qwe123",
}
