package redis

import (
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// envelope is the wire shape carried on a pub/sub channel. Data stays
// loosely typed until mapstructure projects it onto the event's payload
// type, so publishers only need to produce this JSON shape, not a Go
// type.
type envelope struct {
	Origin string `json:"origin" mapstructure:"origin"`
	Data   any    `json:"data" mapstructure:"data"`
}

func encodeEnvelope[A any](origin string, args A) ([]byte, error) {
	data, err := json.Marshal(envelope{Origin: origin, Data: args})
	if err != nil {
		return nil, fmt.Errorf("failed to encode envelope: %w", err)
	}
	return data, nil
}

func decodeEnvelope[A any](raw []byte) (string, A, error) {
	var args A

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", args, fmt.Errorf("failed to parse envelope: %w", err)
	}
	if err := mapstructure.Decode(env.Data, &args); err != nil {
		return "", args, fmt.Errorf("failed to decode payload: %w", err)
	}

	return env.Origin, args, nil
}
