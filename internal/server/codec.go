package server

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// jsonCodec replaces Connect's protojson codec so plain Go structs can be
// used as messages. It claims the "json" name, which makes it serve
// application/json requests, including Centrifugo's HTTP proxy calls.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(msg any) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", msg, err)
	}
	return data, nil
}

func (jsonCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("unmarshal %T: %w", msg, err)
	}
	return nil
}
