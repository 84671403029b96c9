package agent

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"health-companion/internal/consultation"
)

var ErrVoiceDisabled = fmt.Errorf("voice service not configured: %w", consultation.ErrUnavailable)

// VoiceClient talks to the local speech container: Whisper for
// transcription and Silero for synthesis. Either URL may be empty.
type VoiceClient struct {
	sttURL     string
	ttsURL     string
	speaker    string
	httpClient *http.Client
}

func NewVoiceClient(sttURL, ttsURL, speaker string) *VoiceClient {
	return &VoiceClient{
		sttURL:  sttURL,
		ttsURL:  ttsURL,
		speaker: speaker,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// post sends one request to a voice service and returns the raw reply body.
// Any non-200 answer becomes an error carrying the upstream message.
func (c *VoiceClient) post(ctx context.Context, service, url, contentType string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", service, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s reply: %w", service, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s service answered %s: %s", service, resp.Status, bytes.TrimSpace(data))
	}
	return data, nil
}

var _ consultation.SpeechClient = (*VoiceClient)(nil)
