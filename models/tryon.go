package models

// TryOnRequest is the body posted to the try-on endpoint
type TryOnRequest struct {
	PersonImage  string `json:"person_image"`
	GarmentImage string `json:"garment_image"`
	Quality      string `json:"quality,omitempty"`
}

// TryOnResponse is the structured body returned by the try-on endpoint
type TryOnResponse struct {
	Success        bool     `json:"success"`
	ResultImage    string   `json:"result_image,omitempty"`
	ProcessingTime *float64 `json:"processing_time,omitempty"`
	Cost           *float64 `json:"cost,omitempty"`
	RemainingUsage *int     `json:"remaining_usage,omitempty"`
	Error          string   `json:"error,omitempty"`
	Message        string   `json:"message,omitempty"`
}

// TryOnResult is the outcome of one submission: either a composited image or an error message
type TryOnResult struct {
	Success        bool    `json:"success"`
	ResultImage    string  `json:"result_image,omitempty"`
	ProcessingTime float64 `json:"processing_time,omitempty"` // in seconds
	Cost           float64 `json:"cost,omitempty"`
	ErrorMessage   string  `json:"error_message,omitempty"`
	RequestID      string  `json:"request_id,omitempty"`
}

// NewTryOnFailure builds a failed result carrying message
func NewTryOnFailure(requestID, message string) *TryOnResult {
	return &TryOnResult{Success: false, ErrorMessage: message, RequestID: requestID}
}
