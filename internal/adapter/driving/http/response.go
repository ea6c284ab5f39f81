package httphandler

import (
	"encoding/json"
	"net/http"

	"github.com/luoyuxi/campusfeed/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// NotificationResponse is the JSON representation of one feed entry.
type NotificationResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Summary     string `json:"summary"`
	PublishedAt string `json:"date"`
	URL         string `json:"url"`
	Source      string `json:"source"`
}

func toNotificationResponse(n model.Notification) NotificationResponse {
	return NotificationResponse{
		ID:          n.ID,
		Title:       n.Title,
		Summary:     n.Summary,
		PublishedAt: n.PublishedAt,
		URL:         n.URL,
		Source:      n.Source,
	}
}

type notificationsResponse struct {
	Notifications []NotificationResponse `json:"notifications"`
}

type countResponse struct {
	Count int `json:"count"`
}

// SourceOutcomeResponse reports one provider's result within a refresh run.
type SourceOutcomeResponse struct {
	Source string `json:"source"`
	Count  int    `json:"count"`
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
}

func toSourceOutcomeResponse(out model.SourceOutcome) SourceOutcomeResponse {
	resp := SourceOutcomeResponse{
		Source: out.Source,
		Count:  out.Count,
		OK:     out.Err == nil,
	}
	if out.Err != nil {
		resp.Error = out.Err.Error()
	}
	return resp
}

type refreshResponse struct {
	Sources []SourceOutcomeResponse `json:"sources"`
}

type healthResponse struct {
	Status string `json:"status"`
	State  string `json:"state"`
}
