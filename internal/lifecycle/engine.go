// Package lifecycle holds the lead state machine. It decides which messages a
// lead receives and when it is nudged next; it never talks to storage or
// gateways itself.
package lifecycle

import (
	"fmt"
	"strings"
	"time"

	"github.com/aniladanir/lead-funnel/internal/domain"
	"github.com/aniladanir/lead-funnel/internal/faq"
)

const DefaultNudgeInterval = 240 * time.Minute

var schedulingIntents = map[string]struct{}{
	"yes":      {},
	"book":     {},
	"schedule": {},
}

type Engine struct {
	schedulingURL string
	nudgeInterval time.Duration
}

func NewEngine(schedulingURL string, nudgeInterval time.Duration) *Engine {
	if nudgeInterval <= 0 {
		nudgeInterval = DefaultNudgeInterval
	}
	return &Engine{
		schedulingURL: schedulingURL,
		nudgeInterval: nudgeInterval,
	}
}

func (e *Engine) NudgeInterval() time.Duration {
	return e.nudgeInterval
}

// CallToAction returns the text that points a lead towards booking a chat.
func (e *Engine) CallToAction() string {
	if e.schedulingURL != "" {
		return "Book a quick video chat here: " + e.schedulingURL
	}
	return "Reply YES to schedule a quick video chat."
}

// OnLeadCreated schedules the first nudge and returns the welcome message.
func (e *Engine) OnLeadCreated(lead *domain.Lead, now time.Time) (*domain.OutboundMessage, error) {
	if lead.NextNudgeAt != nil {
		return nil, domain.ErrNudgeAlreadyScheduled
	}
	next := now.Add(e.nudgeInterval)
	lead.NextNudgeAt = &next

	cta := e.CallToAction()
	return e.compose(lead,
		"Welcome!",
		fmt.Sprintf("Hi %s! Thanks for reaching out. %s", lead.Name, cta),
		fmt.Sprintf("Hi %s,\n\nThanks for reaching out. %s", lead.Name, cta),
	), nil
}

// OnInboundMessage reacts to a message received from the lead. The FAQ reply
// and the scheduling intent are evaluated independently, so both may fire.
func (e *Engine) OnInboundMessage(lead *domain.Lead, channel domain.Channel, content string) []domain.OutboundMessage {
	var out []domain.OutboundMessage

	if reply, ok := faq.Answer(content); ok {
		if msg := e.replyOn(lead, channel, "Re: your question", reply); msg != nil {
			out = append(out, *msg)
		}
	}

	if e.isSchedulingIntent(content) {
		cta := e.CallToAction()
		if msg := e.compose(lead, "Schedule link", "Great! "+cta, cta); msg != nil {
			out = append(out, *msg)
		}
		// scheduled is terminal; an intent never reopens nudging
		if lead.Status != domain.LeadScheduled {
			lead.Status = domain.LeadEngaged
		}
	}

	return out
}

// OnScheduled records the booked meeting. expectedVersion, when given, must
// match the lead's schedule version. Without it, repeating the same meeting URL
// is a no-op and a different URL for an already scheduled lead is a conflict.
func (e *Engine) OnScheduled(lead *domain.Lead, meetingURL string, expectedVersion *int) (*domain.OutboundMessage, error) {
	if expectedVersion != nil {
		if *expectedVersion != lead.ScheduleVersion {
			return nil, fmt.Errorf("%w: version %d, expected %d",
				domain.ErrScheduleConflict, lead.ScheduleVersion, *expectedVersion)
		}
	} else if lead.Status == domain.LeadScheduled {
		if lead.ScheduledURL != nil && *lead.ScheduledURL == meetingURL {
			return nil, nil
		}
		return nil, domain.ErrScheduleConflict
	}

	lead.ScheduledURL = &meetingURL
	lead.Status = domain.LeadScheduled
	lead.ScheduleVersion++

	const confirmation = "You're all set. Calendar invite sent!"
	return e.compose(lead, "Confirmed", confirmation, confirmation), nil
}

// OnNudgeFired advances the nudge counter and schedule and returns the check-in.
func (e *Engine) OnNudgeFired(lead *domain.Lead, now time.Time) *domain.OutboundMessage {
	lead.NudgesSent++
	next := now.Add(e.nudgeInterval)
	lead.NextNudgeAt = &next

	body := fmt.Sprintf("Hi %s, just checking in. %s", lead.Name, e.CallToAction())
	return e.compose(lead, "Quick check-in", body, body)
}

func (e *Engine) isSchedulingIntent(content string) bool {
	if e.schedulingURL == "" {
		return false
	}
	_, ok := schedulingIntents[strings.ToLower(strings.TrimSpace(content))]
	return ok
}

// compose picks SMS when the lead has a phone, email otherwise, and nil when
// the lead cannot be reached at all.
func (e *Engine) compose(lead *domain.Lead, subject, smsBody, emailBody string) *domain.OutboundMessage {
	if phone := lead.PhoneNumber(); phone != "" {
		return &domain.OutboundMessage{Channel: domain.ChannelSMS, To: phone, Body: smsBody}
	}
	if email := lead.EmailAddress(); email != "" {
		return &domain.OutboundMessage{Channel: domain.ChannelEmail, To: email, Subject: subject, Body: emailBody}
	}
	return nil
}

// replyOn answers on the channel the lead wrote from when possible.
func (e *Engine) replyOn(lead *domain.Lead, channel domain.Channel, subject, body string) *domain.OutboundMessage {
	switch channel {
	case domain.ChannelSMS:
		if phone := lead.PhoneNumber(); phone != "" {
			return &domain.OutboundMessage{Channel: domain.ChannelSMS, To: phone, Body: body}
		}
	case domain.ChannelEmail:
		if email := lead.EmailAddress(); email != "" {
			return &domain.OutboundMessage{Channel: domain.ChannelEmail, To: email, Subject: subject, Body: body}
		}
	}
	return e.compose(lead, subject, body, body)
}
