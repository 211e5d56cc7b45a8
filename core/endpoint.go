package core

// EndpointProvider provides a list of endpoints to register dynamically
type EndpointProvider interface {
	GetEndpoints() []Endpoint
}

type Endpoint struct {
	Path     string
	Method   string
	Metadata EndpointMetadata
}

type EndpointMetadata struct {
	OperationID string
	Description string
	// Protected endpoints require a restored principal.
	Protected bool
}

// ErrorResponse represents an error response structure
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}
