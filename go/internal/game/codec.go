package game

import "encoding/json"

// jsonCodec replaces connect's protobuf JSON codec so plain Go structs can be
// used as request and response messages.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
