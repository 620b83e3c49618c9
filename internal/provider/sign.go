package provider

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
)

// signQuery computes the provider's request signature: hex HMAC-SHA256 over
// "<path>?<sorted-encoded-query>" with the shared secret. url.Values.Encode
// sorts by key, which is exactly the canonical form the provider verifies.
func signQuery(secret, path string, params url.Values) string {
	canonical := path + "?" + params.Encode()
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(canonical))
	return hex.EncodeToString(mac.Sum(nil))
}
