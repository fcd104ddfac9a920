package types

// SuccessEnvelope wraps every 2xx body as {"data": ...}.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the public error shape. MessageKey lets clients localize the
// message themselves; RequestID correlates with server logs.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	MessageKey string `json:"message_key,omitempty"`
	Retryable  bool   `json:"retryable,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
	Details    any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
