package server

import (
	json "github.com/goccy/go-json"
)

// ProxyRequest is the broker's publish or subscribe proxy request. Only
// User and Channel take part in the decision.
type ProxyRequest struct {
	Client    string          `json:"client"`
	Transport string          `json:"transport"`
	Protocol  string          `json:"protocol"`
	Encoding  string          `json:"encoding"`
	User      string          `json:"user"`
	Channel   string          `json:"channel"`
	Data      json.RawMessage `json:"data,omitempty"`
	B64Data   string          `json:"b64data,omitempty"`
}

// ProxyResponse carries exactly one of Result or Error.
type ProxyResponse struct {
	Result *ProxyResult `json:"result,omitempty"`
	Error  *ProxyError  `json:"error,omitempty"`
}

// ProxyResult is the empty success payload.
type ProxyResult struct{}

// ProxyError tells the broker to reject the client. Temporary errors may be
// retried by the client.
type ProxyError struct {
	Code      uint32 `json:"code"`
	Message   string `json:"message"`
	Temporary bool   `json:"temporary"`
}
