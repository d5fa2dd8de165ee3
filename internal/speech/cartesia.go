// Package speech synthesizes spoken status notices via the Cartesia TTS API.
// Failures are logged and swallowed: a missing voice never affects a run.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/emilalvaro25/vibe/internal/config"
)

const clipName = "status.mp3"

type Client struct {
	cfg     config.SpeechConfig
	dataDir string
	client  *http.Client
}

func NewClient(cfg config.SpeechConfig, dataDir string) *Client {
	return &Client{
		cfg:     cfg,
		dataDir: dataDir,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type ttsRequest struct {
	Text   string `json:"text"`
	Voice  string `json:"voice"`
	Format string `json:"format"`
}

// Speak synthesizes text and drops the clip next to the data dir so the UI
// can fetch the latest notice. No-op without a configured key.
func (c *Client) Speak(text string) {
	if text == "" || c.cfg.APIKey == "" {
		return
	}
	go func() {
		if err := c.synthesize(context.Background(), text); err != nil {
			slog.Warn("speech synthesis failed", "error", err)
		}
	}()
}

func (c *Client) synthesize(ctx context.Context, text string) error {
	payload, err := json.Marshal(ttsRequest{Text: text, Voice: c.cfg.Voice, Format: "audio/mpeg"})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("tts request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("tts backend returned %s", resp.Status)
	}

	audio, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("read audio: %w", err)
	}
	if len(audio) == 0 {
		return fmt.Errorf("tts backend returned no audio")
	}

	path := filepath.Join(c.dataDir, clipName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, audio, 0o644); err != nil {
		return fmt.Errorf("write clip: %w", err)
	}
	return os.Rename(tmp, path)
}
