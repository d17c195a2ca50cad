package domain

import (
	"encoding/json"
	"fmt"
)

// EventName identifies an inbound or outbound protocol event.
type EventName string

// Inbound events, one stream per connection.
const (
	EventLogin       EventName = "login"
	EventLogout      EventName = "logout"
	EventSubscribe   EventName = "subscribe"
	EventUnsubscribe EventName = "unsubscribe"
)

// Outbound events.
const (
	EventSupportedSymbols     EventName = "supportedSymbols"
	EventInitialPrices        EventName = "initialPrices"
	EventSubscriptionsChanged EventName = "subscriptionsChanged"
	EventPriceUpdate          EventName = "priceUpdate"
	EventTickerUpdate         EventName = "tickerUpdate"
)

// Event is an outbound message to a single connection.
// Exactly one of Symbols or Prices is meaningful, depending on Name.
type Event struct {
	Name    EventName
	Symbols []Symbol
	Prices  Prices
}

func SupportedSymbolsEvent(symbols []Symbol) Event {
	return Event{Name: EventSupportedSymbols, Symbols: symbols}
}

func InitialPricesEvent(prices Prices) Event {
	return Event{Name: EventInitialPrices, Prices: prices}
}

func SubscriptionsChangedEvent(symbols []Symbol) Event {
	return Event{Name: EventSubscriptionsChanged, Symbols: symbols}
}

func PriceUpdateEvent(prices Prices) Event {
	return Event{Name: EventPriceUpdate, Prices: prices}
}

func TickerUpdateEvent(prices Prices) Event {
	return Event{Name: EventTickerUpdate, Prices: prices}
}

// carriesSymbols reports whether the event payload is a symbol list.
func (e Event) carriesSymbols() bool {
	return e.Name == EventSupportedSymbols || e.Name == EventSubscriptionsChanged
}

type wireEvent struct {
	Event EventName       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// MarshalJSON encodes the event as {"event": name, "data": payload}.
// Symbol lists always encode as arrays, never null.
func (e Event) MarshalJSON() ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if e.carriesSymbols() {
		symbols := e.Symbols
		if symbols == nil {
			symbols = []Symbol{}
		}
		data, err = json.Marshal(symbols)
	} else {
		prices := e.Prices
		if prices == nil {
			prices = Prices{}
		}
		data, err = json.Marshal(prices)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", e.Name, err)
	}
	return json.Marshal(wireEvent{Event: e.Name, Data: data})
}

func (e *Event) UnmarshalJSON(data []byte) error {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode event: %w", err)
	}
	decoded := Event{Name: w.Event}
	if decoded.carriesSymbols() {
		if err := json.Unmarshal(w.Data, &decoded.Symbols); err != nil {
			return fmt.Errorf("decode %s payload: %w", w.Event, err)
		}
	} else if len(w.Data) > 0 {
		if err := json.Unmarshal(w.Data, &decoded.Prices); err != nil {
			return fmt.Errorf("decode %s payload: %w", w.Event, err)
		}
	}
	*e = decoded
	return nil
}
