package duckdb

import (
	"encoding/base64"
	"fmt"
	"strconv"
)

// Page tokens are opaque base64-encoded row offsets, mirroring the token
// shape remote analytical backends hand out.

func encodeOffset(offset int) string {
	return base64.StdEncoding.EncodeToString([]byte(strconv.Itoa(offset)))
}

func decodeOffset(token string) (int, error) {
	if token == "" {
		return 0, nil
	}
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return 0, fmt.Errorf("malformed page token %q", token)
	}
	offset, err := strconv.Atoi(string(raw))
	if err != nil || offset < 0 {
		return 0, fmt.Errorf("malformed page token %q", token)
	}
	return offset, nil
}
