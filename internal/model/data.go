package model

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Known keys of the provider side-channel object.
const (
	DataKeyNewCreditsBalance = "new_credits_balance"
	DataKeyNewWinningBalance = "new_winning_balance"
	DataKeyUsername          = "username"
)

// QueueData is the provider-specific side-channel attached to a queue record.
// Known keys are typed; anything else, including a known key whose value
// does not decode, is kept verbatim in Extra so that a record survives a
// decode/encode cycle unchanged.
type QueueData struct {
	NewCreditsBalance *decimal.Decimal
	NewWinningBalance *decimal.Decimal
	Username          *string
	Extra             map[string]json.RawMessage
}

// IsEmpty reports whether no key at all is set.
func (d QueueData) IsEmpty() bool {
	return d.NewCreditsBalance == nil && d.NewWinningBalance == nil && d.Username == nil && len(d.Extra) == 0
}

// UnmarshalJSON decodes the side-channel, tolerating null and non-object payloads
// the backend has been seen to send for records without provider data.
func (d *QueueData) UnmarshalJSON(b []byte) error {
	*d = QueueData{}

	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || trimmed[0] != '{' {
		return nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return fmt.Errorf("failed to decode queue data: %w", err)
	}

	for key, value := range raw {
		switch key {
		case DataKeyNewCreditsBalance, DataKeyNewWinningBalance:
			v, err := decodeBalance(value)
			if err != nil {
				log.Debug().Err(err).Str("key", key).RawJSON("value", value).Msg("Keeping undecodable queue data value as-is")
				d.keep(key, value)
				continue
			}
			if key == DataKeyNewCreditsBalance {
				d.NewCreditsBalance = v
			} else {
				d.NewWinningBalance = v
			}
		case DataKeyUsername:
			if isNull(value) {
				continue
			}
			var s string
			if err := json.Unmarshal(value, &s); err != nil {
				// free-form field; keep whatever the provider sent
				s = string(value)
			}
			d.Username = &s
		default:
			d.keep(key, value)
		}
	}

	return nil
}

func (d *QueueData) keep(key string, value json.RawMessage) {
	if d.Extra == nil {
		d.Extra = make(map[string]json.RawMessage)
	}
	d.Extra[key] = append(json.RawMessage(nil), value...)
}

// MarshalJSON encodes known keys alongside the preserved extras.
func (d QueueData) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.Extra)+3)
	for k, v := range d.Extra {
		out[k] = v
	}
	if d.NewCreditsBalance != nil {
		out[DataKeyNewCreditsBalance] = d.NewCreditsBalance.String()
	}
	if d.NewWinningBalance != nil {
		out[DataKeyNewWinningBalance] = d.NewWinningBalance.String()
	}
	if d.Username != nil {
		out[DataKeyUsername] = *d.Username
	}
	return json.Marshal(out)
}

// decodeBalance accepts a JSON number, a numeric string, or null.
func decodeBalance(value json.RawMessage) (*decimal.Decimal, error) {
	if isNull(value) {
		return nil, nil
	}

	var s string
	if err := json.Unmarshal(value, &s); err == nil {
		if s == "" {
			return nil, nil
		}
		v, err := decimal.NewFromString(s)
		if err != nil {
			return nil, err
		}
		return &v, nil
	}

	v, err := decimal.NewFromString(string(bytes.TrimSpace(value)))
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func isNull(value json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(value), []byte("null"))
}
