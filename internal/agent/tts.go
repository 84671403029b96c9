package agent

import (
	"context"
	"encoding/json"
)

const defaultSpeaker = "en_0"

type ttsRequest struct {
	Text    string `json:"text"`
	Speaker string `json:"speaker"`
}

// Synthesize voices an assistant reply and returns the audio bytes as sent
// by the service.
func (c *VoiceClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if c.ttsURL == "" {
		return nil, ErrVoiceDisabled
	}

	speaker := c.speaker
	if speaker == "" {
		speaker = defaultSpeaker
	}
	body, err := json.Marshal(ttsRequest{Text: text, Speaker: speaker})
	if err != nil {
		return nil, err
	}
	return c.post(ctx, "text-to-speech", c.ttsURL, "application/json", body)
}
