// Package faq answers common lead questions from a fixed keyword table.
package faq

import "strings"

type entry struct {
	keyword string
	reply   string
}

const (
	pricingReply = "Our pricing is flexible. Most plans start at $99/mo. Want details?"
	trialReply   = "We offer a free trial. Would you like me to set that up?"
	cancelReply  = "You can cancel anytime from your dashboard or by replying CANCEL."
	supportReply = "You can reach support 24/7 via this thread or support@example.com."
)

// table order is the tie-break when several keywords match
var table = []entry{
	{"pricing", pricingReply},
	{"price", pricingReply},
	{"free", trialReply},
	{"trial", trialReply},
	{"cancel", cancelReply},
	{"support", supportReply},
}

// Answer returns the canned reply of the first keyword contained in text.
func Answer(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, e := range table {
		if strings.Contains(lower, e.keyword) {
			return e.reply, true
		}
	}
	return "", false
}
