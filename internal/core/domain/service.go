package domain

import "time"

// ServiceStatus reports backend availability. OCR carries the engine
// configuration as sent by the backend.
type ServiceStatus struct {
	OCR       map[string]any `json:"ocr"`
	Ollama    OllamaStatus   `json:"ollama"`
	Timestamp int64          `json:"timestamp"`
	Version   string         `json:"version"`
}

type OllamaStatus struct {
	Available bool   `json:"available"`
	Model     string `json:"model,omitempty"`
	URL       string `json:"url,omitempty"`
	Error     string `json:"error,omitempty"`
}

// OCRAvailable is false when the backend reports the engine unavailable
// or its status check failed with an error.
func (s ServiceStatus) OCRAvailable() bool {
	if s.OCR == nil {
		return false
	}
	if msg, ok := s.OCR["error"].(string); ok && msg != "" {
		return false
	}
	available, ok := s.OCR["available"].(bool)
	return !ok || available
}

func (s ServiceStatus) OCRError() string {
	msg, _ := s.OCR["error"].(string)
	return msg
}

// CheckedAt converts the millisecond timestamp; zero means unknown.
func (s ServiceStatus) CheckedAt() time.Time {
	if s.Timestamp <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(s.Timestamp).UTC()
}
