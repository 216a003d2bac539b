package credentials

import (
	"crypto/rand"
	"math/big"
	"strings"
	"unicode"
)

const (
	passwordChars   = "abcdefghijkmnpqrstuvwxyz23456789"
	inviteChars     = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	passwordLength  = 8
	inviteSuffixLen = 4
	invitePrefix    = "NQ"
)

// GenerateStudentPassword generates a random 8-character password of
// lowercase letters and digits, skipping look-alikes (l, o, 0, 1)
func GenerateStudentPassword() (string, error) {
	return randomString(passwordChars, passwordLength)
}

// GenerateInviteCode builds a class invite code: "NQ", up to three letters
// taken from the class name and a random base36 suffix
func GenerateInviteCode(className string) (string, error) {
	var stem strings.Builder
	for _, r := range className {
		if stem.Len() == 3 {
			break
		}
		if unicode.IsSpace(r) || r > unicode.MaxASCII {
			continue
		}
		stem.WriteRune(unicode.ToUpper(r))
	}

	suffix, err := randomString(inviteChars, inviteSuffixLen)
	if err != nil {
		return "", err
	}
	return invitePrefix + stem.String() + suffix, nil
}

func randomString(chars string, n int) (string, error) {
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(chars))))
		if err != nil {
			return "", err
		}
		out[i] = chars[num.Int64()]
	}
	return string(out), nil
}
