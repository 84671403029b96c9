package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
)

// transcription is the Whisper service reply.
type transcription struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// Transcribe uploads a recorded question as the "file" form field and
// returns the recognized text, which may be empty for silence.
func (c *VoiceClient) Transcribe(ctx context.Context, audioData []byte) (string, error) {
	if c.sttURL == "" {
		return "", ErrVoiceDisabled
	}

	body, contentType, err := audioForm(audioData)
	if err != nil {
		return "", err
	}
	data, err := c.post(ctx, "speech-to-text", c.sttURL, contentType, body)
	if err != nil {
		return "", err
	}

	var result transcription
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("decode transcription: %w", err)
	}
	return result.Text, nil
}

func audioForm(audioData []byte) ([]byte, string, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", "question.wav")
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(audioData); err != nil {
		return nil, "", err
	}
	if err := form.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), form.FormDataContentType(), nil
}
