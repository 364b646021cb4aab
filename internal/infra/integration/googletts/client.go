package googletts

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"
)

// synthesizer is the part of the Cloud TTS client we call.
type synthesizer interface {
	SynthesizeSpeech(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest, opts ...gax.CallOption) (*texttospeechpb.SynthesizeSpeechResponse, error)
}

var ErrVoiceTooLong = errors.New("voice note exceeds maximum duration")

type Client struct {
	tts    synthesizer
	closer func() error

	// MaxDuration drops voice notes that would play longer; 0 means no cap.
	MaxDuration time.Duration
}

// NewClient uses Application Default Credentials unless a service account
// file is given.
func NewClient(ctx context.Context, credentialsFile string, maxDuration time.Duration) (*Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	c, err := texttospeech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create text-to-speech client: %w", err)
	}

	return &Client{tts: c, closer: c.Close, MaxDuration: maxDuration}, nil
}

func (c *Client) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}

// Synthesize renders text as MP3 in the voice for the given language.
func (c *Client) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	req := &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: VoiceLanguage(language),
			SsmlGender:   texttospeechpb.SsmlVoiceGender_NEUTRAL,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_MP3,
		},
	}

	resp, err := c.tts.SynthesizeSpeech(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("synthesize speech: %w", err)
	}
	if len(resp.AudioContent) == 0 {
		return nil, fmt.Errorf("synthesize speech: empty audio")
	}

	d, err := ProbeDuration(resp.AudioContent)
	if err != nil {
		// Length unknown, so the cap cannot be enforced.
		log.Printf("⚠️ TTS: could not measure %s voice note: %v", VoiceLanguage(language), err)
		return resp.AudioContent, nil
	}
	if c.MaxDuration > 0 && d > c.MaxDuration {
		return nil, fmt.Errorf("%w: %s > %s", ErrVoiceTooLong, d.Round(100*time.Millisecond), c.MaxDuration)
	}

	log.Printf("🔊 TTS: %s voice note, %s", VoiceLanguage(language), d.Round(100*time.Millisecond))
	return resp.AudioContent, nil
}

// Indian-English and regional voices by default; anything else is passed
// through for Cloud TTS to resolve.
var voiceLanguages = map[string]string{
	"en": "en-IN",
	"hi": "hi-IN",
	"bn": "bn-IN",
	"ta": "ta-IN",
	"te": "te-IN",
	"mr": "mr-IN",
	"gu": "gu-IN",
	"kn": "kn-IN",
	"ml": "ml-IN",
	"pa": "pa-IN",
}

func VoiceLanguage(language string) string {
	lang := strings.ToLower(strings.TrimSpace(language))
	if lang == "" {
		return voiceLanguages["en"]
	}
	if v, ok := voiceLanguages[lang]; ok {
		return v
	}
	return language
}
