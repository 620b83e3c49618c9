package api

import "time"

// apiResponse is the envelope for every JSON reply from the sync surface.
// The conversational layer keys off success and reads data or error.
type apiResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func successResponse(message string, data interface{}) apiResponse {
	return apiResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	}
}

func errorResponse(message, detail string) apiResponse {
	return apiResponse{
		Success:   false,
		Message:   message,
		Error:     detail,
		Timestamp: time.Now(),
	}
}
