package client

// StartRequest is the body of POST {base}/start.
type StartRequest struct {
	Duration    int               `json:"duration"`
	Annotations map[string]string `json:"annotations,omitempty"`
}

// StartResponse is the success body of POST {base}/start.
type StartResponse struct {
	ID string `json:"id"`
}

// OKResponse is the generic success body of the signal endpoints.
type OKResponse struct {
	OK bool `json:"ok"`
}

// ErrorResponse is the error body returned by the daemon.
type ErrorResponse struct {
	Error string `json:"error"`
}
