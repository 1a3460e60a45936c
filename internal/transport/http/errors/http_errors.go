package errors

import (
	"encoding/json"
	"net/http"

	"github.com/ivankudzin/portfolio/internal/pkg/validate"
)

type APIError struct {
	Code    string                `json:"code"`
	Message string                `json:"message"`
	Details []validate.FieldError `json:"details,omitempty"`
}

type RateLimitError struct {
	Code          string `json:"code"`
	Message       string `json:"message"`
	RetryAfterSec int64  `json:"retry_after_sec"`
}

func Write(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
