package domain

import (
	"encoding/base64"
	"strings"
)

// CachedContinuation is the durable per-session state persisted in the cache
// between requests. It identifies the running backend job and the cursor of
// the next unread page.
type CachedContinuation struct {
	JobID     string `json:"jobId"`
	PageToken string `json:"pageToken"`
}

// continuationSeparator joins the two token components. Backend job ids and
// page tokens never contain a newline.
const continuationSeparator = "\n"

// EncodeContinuation serializes a {jobID, pageToken} pair into an opaque,
// URL-safe continuation token. Deterministic: identical inputs always yield
// the identical token.
func EncodeContinuation(jobID, pageToken string) string {
	payload := jobID + continuationSeparator + pageToken
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

// DecodeContinuation reverses EncodeContinuation. It returns a
// MalformedTokenError when the token is not valid base64 or does not split
// into exactly the two expected components.
func DecodeContinuation(token string) (jobID, pageToken string, err error) {
	raw, decodeErr := base64.RawURLEncoding.DecodeString(token)
	if decodeErr != nil {
		return "", "", ErrMalformedToken("continuation token is not valid base64")
	}
	parts := strings.Split(string(raw), continuationSeparator)
	if len(parts) != 2 {
		return "", "", ErrMalformedToken("continuation token has %d components, want 2", len(parts))
	}
	return parts[0], parts[1], nil
}
