package response

import (
	"bytes"
	"encoding/json"
	"net/http"
)

// Envelope wraps every JSON response body
type Envelope struct {
	Status  bool        `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
	Code    string      `json:"code,omitempty"`
}

// encodeFailure is sent when an envelope cannot be encoded
var encodeFailure = []byte(`{"status":false,"message":"Failed to encode response","data":null,"code":"ENCODE_ERROR"}` + "\n")

// WriteJSON encodes envelope before writing any header, so an encoding
// failure turns into a 500 instead of a truncated success.
func WriteJSON(w http.ResponseWriter, statusCode int, envelope Envelope) {
	var buf bytes.Buffer
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(&buf).Encode(envelope); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write(encodeFailure)
		return
	}
	w.WriteHeader(statusCode)
	_, _ = w.Write(buf.Bytes())
}

func Success(w http.ResponseWriter, statusCode int, message string, data interface{}) {
	WriteJSON(w, statusCode, Envelope{Status: true, Message: message, Data: data})
}

func Error(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, Envelope{Status: false, Message: message})
}

// ErrorWithCode writes a failure envelope carrying a machine-readable code
func ErrorWithCode(w http.ResponseWriter, statusCode int, code, message string) {
	WriteJSON(w, statusCode, Envelope{Status: false, Message: message, Code: code})
}

func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, message)
}

func Unauthorized(w http.ResponseWriter, message string) {
	Error(w, http.StatusUnauthorized, message)
}

func TooManyRequests(w http.ResponseWriter, message string) {
	Error(w, http.StatusTooManyRequests, message)
}

func InternalServerError(w http.ResponseWriter, message string) {
	Error(w, http.StatusInternalServerError, message)
}
