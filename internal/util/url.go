package util

import (
	"fmt"
	"net/url"
	"strings"
)

// StaticJoinURL builds the legacy join URL for a static-mode queue,
// embedding the permanent secret as a query parameter.
func StaticJoinURL(baseURL, queueID, secret string) string {
	return fmt.Sprintf(
		"%s/public/q/%s/join?secret=%s",
		strings.TrimRight(baseURL, "/"),
		url.PathEscape(queueID),
		url.QueryEscape(secret),
	)
}

// TokenJoinURL builds the join URL for a dynamic-mode queue, embedding
// the current token value in the path.
func TokenJoinURL(baseURL, tokenValue string) string {
	return fmt.Sprintf(
		"%s/q/%s",
		strings.TrimRight(baseURL, "/"),
		url.PathEscape(tokenValue),
	)
}
