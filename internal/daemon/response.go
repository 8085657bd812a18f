package daemon

import (
	"encoding/json"
	"log/slog"
)

// Response is the JSON envelope the daemon writes back for every
// request verb. Streaming verbs (LOGS, ATTACH, EVENTS) bypass it.
type Response struct {
	Messages []ResponseMessage `json:"messages"`
	Data     interface{}       `json:"data,omitempty"`
}

type ResponseMessage struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

func (r *Response) AddMessage(message string, status string) {
	r.Messages = append(r.Messages, ResponseMessage{
		Message: message,
		Status:  status,
	})
}

func (r *Response) AddData(data interface{}) {
	r.Data = data
}

// Ok reports whether the response carries no ERROR messages.
func (r *Response) Ok() bool {
	for _, m := range r.Messages {
		if m.Status == "ERROR" {
			return false
		}
	}
	return true
}

func (r *Response) ToJSON() string {
	bytes, err := json.Marshal(r)
	if err != nil {
		panic(err)
	}
	return string(bytes)
}

// LogMessages replays the response messages through slog at the level
// matching each message status.
func (r *Response) LogMessages() {
	for _, message := range r.Messages {
		switch message.Status {
		case "WARN":
			slog.Warn(message.Message)
		case "ERROR":
			slog.Error(message.Message)
		default:
			slog.Info(message.Message)
		}
	}
}
