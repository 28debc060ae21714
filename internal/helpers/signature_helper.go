package helpers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// SignTicket produces the HMAC signature embedded in a ticket's QR
// payload, binding the ticket number to its owner.
func SignTicket(number int64, ownerID, secretKey string) string {
	data := fmt.Sprintf("%d:%s", number, ownerID)
	h := hmac.New(sha256.New, []byte(secretKey))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

// VerifyTicketSignature checks a QR payload signature in constant time.
func VerifyTicketSignature(number int64, ownerID, secretKey, signature string) bool {
	expected := SignTicket(number, ownerID, secretKey)
	return hmac.Equal([]byte(expected), []byte(signature))
}
