// Package events defines the messages exchanged between the API server and the cache warmer.
package events

import "time"

// TopicLinkIssued carries a LinkIssued event for every successful issue.
const TopicLinkIssued = "links.issued"

// LinkIssued is published after a token has been reserved.
type LinkIssued struct {
	Token    string    `json:"token"`
	URL      string    `json:"url"`
	IssuedAt time.Time `json:"issuedAt"`
}
