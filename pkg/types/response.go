package types

// SuccessEnvelope is the body shape of every 2xx response.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the wire form of a failed request: a stable machine code, a
// human message, and optional structured details.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope is the body shape of every error response.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
