package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign returns hex(HMAC-SHA256(secret, message)).
func Sign(secret, message string) string {
	return signBytes(secret, []byte(message))
}

func signBytes(secret string, message []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}

// CheckoutSignature is the signature the gateway hands the client after a successful checkout.
func CheckoutSignature(keySecret, orderID, paymentID string) string {
	return Sign(keySecret, orderID+"|"+paymentID)
}

func VerifyPaymentSignature(keySecret, orderID, paymentID, signature string) bool {
	expected := CheckoutSignature(keySecret, orderID, paymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}

func VerifyWebhookSignature(webhookSecret string, body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	expected := signBytes(webhookSecret, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}
