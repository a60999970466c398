package faq

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnswer(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		reply string
		ok    bool
	}{
		{"pricing upper case", "What is your PRICING?", pricingReply, true},
		{"padded", "   what is the price   ", pricingReply, true},
		{"cancel", "cancel please", cancelReply, true},
		{"first keyword wins", "is support free?", trialReply, true},
		{"trial", "Trial?", trialReply, true},
		{"no match", "hello there", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply, ok := Answer(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.reply, reply)
		})
	}
}
