package parser

import "encoding/base64"

// base64Encode renders a 32-byte digest as the 44-character base64 string
// every hash-typed column stores.
func base64Encode(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}
