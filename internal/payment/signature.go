// Package payment implements the gateway's webhook signature contract.
// The base string field order and serialization are a strict external
// contract: amount is the exact wire string, never re-serialized.
package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// BaseString is transaction_id|order_id|amount|currency, pinned by test.
func BaseString(transactionID, orderID, amount, currency string) string {
	return strings.Join([]string{transactionID, orderID, amount, currency}, "|")
}

// Sign returns the hex HMAC-SHA256 of the base string.
func Sign(secret, base string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(base))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify compares a presented signature in constant time.
func Verify(secret, base, signature string) bool {
	expected := Sign(secret, base)
	return hmac.Equal([]byte(expected), []byte(signature))
}
