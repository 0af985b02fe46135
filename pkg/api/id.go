package api

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const idCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewChatCompletionID generates a "chatcmpl-<unix_ms>-<random6>" response ID.
func NewChatCompletionID() string {
	return fmt.Sprintf("chatcmpl-%d-%s", time.Now().UnixMilli(), randomAlphanumeric(6))
}

// NewToolCallID generates a synthetic tool-call ID of the form
// "call_<name>_<unix_ms>_<i>".
func NewToolCallID(name string, index int) string {
	return fmt.Sprintf("call_%s_%d_%d", name, time.Now().UnixMilli(), index)
}

func randomAlphanumeric(n int) string {
	max := big.NewInt(int64(len(idCharset)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic("crypto/rand failed: " + err.Error())
		}
		b[i] = idCharset[idx.Int64()]
	}
	return string(b)
}
