package id

import (
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const codeAlphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// suffixLen is the length of the random part of a batch code.
const suffixLen = 8

// New returns a fresh random identifier for batches, instruments and shipments.
func New() string {
	return uuid.NewString()
}

// FormatBatchCode returns a human-readable batch code like
// "CHECK_CASHED-1f0c...-7K2M9QXA".
func FormatBatchCode(sourceType, sourceID string) string {
	return fmt.Sprintf("%s-%s-%s", sourceType, sourceID, randomSuffix())
}

// ParseBatchCode splits a batch code into source type, source id and random suffix.
// Source ids may themselves contain dashes; source types may not.
func ParseBatchCode(code string) (sourceType, sourceID, suffix string, err error) {
	first := strings.Index(code, "-")
	last := strings.LastIndex(code, "-")
	if first <= 0 || last == first || last == len(code)-1 {
		return "", "", "", fmt.Errorf("invalid batch code format: %q", code)
	}
	suffix = code[last+1:]
	if len(suffix) != suffixLen {
		return "", "", "", fmt.Errorf("invalid suffix in batch code %q", code)
	}
	return code[:first], code[first+1 : last], suffix, nil
}

func randomSuffix() string {
	var buf [suffixLen]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand never fails on supported platforms.
		panic(fmt.Sprintf("reading random bytes: %v", err))
	}
	out := make([]byte, suffixLen)
	for i, b := range buf {
		out[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(out)
}
