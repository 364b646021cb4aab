package twilio

import (
	"github.com/twilio/twilio-go/twiml"
)

// RenderReply builds the TwiML answer: the text message and, when a voice
// note was produced, a second message carrying it as media.
func RenderReply(text, mediaURL string) (string, error) {
	verbs := []twiml.Element{
		&twiml.MessagingMessage{Body: text},
	}

	if mediaURL != "" {
		verbs = append(verbs, &twiml.MessagingMessage{
			InnerElements: []twiml.Element{
				&twiml.MessagingMedia{Url: mediaURL},
			},
		})
	}

	return twiml.Messages(verbs)
}
