package utils

import (
	"math/rand"
	"strconv"
	"strings"
	"time"
)

const orderTokenPrefix = "PZ-"

const tokenAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// NewOrderToken generates a customer-facing order identifier: prefix, unix
// millis in base36, and a random alphanumeric suffix. The token doubles as a
// storage key and as the lookup token in the tracking view, so it has to be
// generatable without a database round trip.
func NewOrderToken() string {
	var b strings.Builder
	b.WriteString(orderTokenPrefix)
	b.WriteString(strconv.FormatInt(time.Now().UnixMilli(), 36))
	b.WriteByte('-')
	for i := 0; i < 6; i++ {
		b.WriteByte(tokenAlphabet[rand.Intn(len(tokenAlphabet))])
	}
	return strings.ToUpper(b.String())
}
