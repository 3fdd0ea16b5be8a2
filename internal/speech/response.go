package speech

import "encoding/json"

// APIError is an error the service reported in the response body. Its message
// is shown to the user as-is.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

type TranscriptionResult struct {
	Text     string `json:"text"`
	AudioURL string `json:"audio_url"`
}

// TranscriptionResponse mirrors the service's response document. Which fields
// are populated varies by deployment, so extraction goes through the
// candidate-priority helpers below.
type TranscriptionResponse struct {
	Error      string                `json:"error"`
	Transcript string                `json:"transcript"`
	Text       string                `json:"text"`
	AudioURL   string                `json:"audio_url"`
	AudioData  string                `json:"audio_data"`
	Results    []TranscriptionResult `json:"results"`

	raw []byte
}

// TranscriptText returns the first populated text field, in priority order
// transcript, results[0].text, text. Empty when no candidate is present.
func (r *TranscriptionResponse) TranscriptText() string {
	if r.Transcript != "" {
		return r.Transcript
	}
	if len(r.Results) > 0 && r.Results[0].Text != "" {
		return r.Results[0].Text
	}
	return r.Text
}

// TranslationAudio returns the first populated audio field, in priority order
// results[0].audio_url, audio_url, audio_data. Empty when no candidate is
// present.
func (r *TranscriptionResponse) TranslationAudio() string {
	if len(r.Results) > 0 && r.Results[0].AudioURL != "" {
		return r.Results[0].AudioURL
	}
	if r.AudioURL != "" {
		return r.AudioURL
	}
	return r.AudioData
}

// Raw returns the undecoded response body.
func (r *TranscriptionResponse) Raw() []byte {
	return r.raw
}

// DecodeResponse parses a service payload and keeps the original bytes around
// so callers can surface documents with none of the known fields.
func DecodeResponse(body []byte) (*TranscriptionResponse, error) {
	var out TranscriptionResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	out.raw = body
	return &out, nil
}
