package websocket

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Shifanaaz-lab/stock-broker-client-dashboard/internal/domain"
)

var (
	errUnknownEvent = errors.New("unknown event")
	errMissingData  = errors.New("missing data")
)

// inboundFrame is a client request: {"event": name, "data": payload}.
type inboundFrame struct {
	Event domain.EventName `json:"event"`
	Data  json.RawMessage  `json:"data,omitempty"`
}

// request is a decoded inbound frame. Arg is the raw identity for login and the
// normalized symbol for subscribe and unsubscribe.
type request struct {
	Event domain.EventName
	Arg   string
}

func decodeRequest(raw []byte) (request, error) {
	var frame inboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return request{}, fmt.Errorf("decode frame: %w", err)
	}

	req := request{Event: frame.Event}
	switch frame.Event {
	case domain.EventLogout:
		return req, nil
	case domain.EventLogin:
		// The identity is opaque: any string, blank included, is taken verbatim.
		// A login without data logs in with the empty identity.
		if len(frame.Data) == 0 || string(frame.Data) == "null" {
			return req, nil
		}
		identity, err := stringData(frame)
		if err != nil {
			return request{}, err
		}
		req.Arg = identity
		return req, nil
	case domain.EventSubscribe, domain.EventUnsubscribe:
		symbol, err := stringData(frame)
		if err != nil {
			return request{}, err
		}
		req.Arg = string(domain.NormalizeSymbol(symbol))
		return req, nil
	default:
		return request{}, fmt.Errorf("%w: %q", errUnknownEvent, frame.Event)
	}
}

func stringData(frame inboundFrame) (string, error) {
	if len(frame.Data) == 0 || string(frame.Data) == "null" {
		return "", fmt.Errorf("%s: %w", frame.Event, errMissingData)
	}
	var s string
	if err := json.Unmarshal(frame.Data, &s); err != nil {
		return "", fmt.Errorf("%s payload: %w", frame.Event, err)
	}
	return s, nil
}
