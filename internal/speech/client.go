package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultEndpoint = "https://api.vaani.cloud/v1/transcribe"
	DefaultTimeout  = 5 * time.Minute

	// Fixed payload parameters the service expects on every request.
	SamplingRate = 16000
	MaxTokens    = 1024

	userAgent = "vaani/1"
)

// TranscriptionRequest is the wire shape of the request body. All fields are
// serialized even at their zero values.
type TranscriptionRequest struct {
	AudioURL               string  `json:"audio_url"`
	SamplingRate           int     `json:"sampling_rate"`
	Temperature            float64 `json:"temperature"`
	MaxTokens              int     `json:"max_tokens"`
	TargetLanguage         string  `json:"target_language"`
	Translate              bool    `json:"is_translate"`
	ReturnTranslationAudio bool    `json:"return_translation_audio"`
}

// NewTranscriptionRequest fills in the fixed parameters around the caller's
// audio source and options.
func NewTranscriptionRequest(audioURL, targetLanguage string, translate, returnAudio bool) TranscriptionRequest {
	return TranscriptionRequest{
		AudioURL:               audioURL,
		SamplingRate:           SamplingRate,
		Temperature:            0,
		MaxTokens:              MaxTokens,
		TargetLanguage:         targetLanguage,
		Translate:              translate,
		ReturnTranslationAudio: returnAudio,
	}
}

type ClientConfig struct {
	Endpoint   string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client talks to the transcription service. One request per invocation; the
// service call is never retried.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(cfg ClientConfig) (*Client, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("API key must not be empty")
	}

	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}, nil
}

// Transcribe performs the single blocking POST against the service and
// decodes the response. An `error` field in the body wins over the HTTP
// status and is returned as *APIError.
func (c *Client) Transcribe(ctx context.Context, req TranscriptionRequest) (*TranscriptionResponse, error) {
	if strings.TrimSpace(req.AudioURL) == "" {
		return nil, errors.New("audio source is required")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	requestID := uuid.NewString()
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", userAgent)
	httpReq.Header.Set("X-Api-Key", c.apiKey)
	httpReq.Header.Set("X-Request-Id", requestID)

	c.logger.Debug("sending transcription request",
		zap.String("endpoint", c.endpoint),
		zap.String("request_id", requestID),
		zap.String("target_language", req.TargetLanguage),
		zap.Bool("translate", req.Translate),
		zap.Bool("return_audio", req.ReturnTranslationAudio),
	)

	started := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("transcription request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read transcription response: %w", err)
	}

	c.logger.Debug("transcription response received",
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)),
		zap.Duration("elapsed", time.Since(started)),
	)

	out, decodeErr := DecodeResponse(body)
	if decodeErr == nil && out.Error != "" {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: out.Error}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("transcription request failed with status %d: %s", resp.StatusCode, bodySnippet(body))
	}

	if decodeErr != nil {
		return nil, fmt.Errorf("parse transcription response: %w", decodeErr)
	}

	return out, nil
}

func bodySnippet(body []byte) string {
	const max = 200
	snippet := strings.TrimSpace(string(body))
	if len(snippet) > max {
		return snippet[:max] + "..."
	}
	if snippet == "" {
		return "(empty body)"
	}
	return snippet
}
