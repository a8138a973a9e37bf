package webhook

import (
	"encoding/json"
	"errors"
	"fmt"
	"storefront-payments/internal/domain"
	"strings"
)

var ErrMalformedPayload = errors.New("malformed webhook payload")

// Event is a parsed webhook envelope. Data is the untyped "data" object;
// its shape differs between event types and gateway API versions.
type Event struct {
	ID   string
	Type domain.EventType
	Data map[string]any
}

func Parse(body []byte) (*Event, error) {
	var root map[string]any
	if err := json.Unmarshal(body, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	data, ok := root["data"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: missing data object", ErrMalformedPayload)
	}

	typ := path{"type"}.str(data)
	if typ == "" || typ == "event" {
		typ = path{"attributes", "type"}.str(data)
	}
	return &Event{
		ID:   path{"id"}.str(data),
		Type: domain.EventType(typ),
		Data: data,
	}, nil
}

type path []string

func (p path) value(m map[string]any) (any, bool) {
	var cur any = m
	for _, key := range p {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = obj[key]; !ok || cur == nil {
			return nil, false
		}
	}
	return cur, true
}

func (p path) str(m map[string]any) string {
	v, _ := p.value(m)
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func (p path) object(m map[string]any) map[string]any {
	v, _ := p.value(m)
	obj, _ := v.(map[string]any)
	return obj
}

// candidate is one step of a lookup chain. prefix, when set, rejects
// values that do not carry it.
type candidate struct {
	path   path
	prefix string
}

func (c candidate) str(m map[string]any) string {
	s := c.path.str(m)
	if c.prefix != "" && !strings.HasPrefix(s, c.prefix) {
		return ""
	}
	return s
}

type chain []candidate

func (c chain) first(m map[string]any) string {
	for _, cand := range c {
		if s := cand.str(m); s != "" {
			return s
		}
	}
	return ""
}

var (
	metadataPaths = []path{
		{"attributes", "data", "attributes", "metadata"},
		{"attributes", "metadata"},
		{"metadata"},
	}

	referenceChain = chain{
		{path: path{"attributes", "data", "attributes", "payment_intent_id"}},
		{path: path{"attributes", "data", "id"}},
		{path: path{"attributes", "id"}},
		{path: path{"id"}},
	}

	linkChain = chain{
		{path: path{"attributes", "data", "attributes", "link_id"}},
		{path: path{"attributes", "link_id"}},
		{path: path{"link_id"}},
		{path: path{"attributes", "data", "attributes", "source", "id"}, prefix: "link_"},
		{path: path{"attributes", "data", "id"}, prefix: "link_"},
		{path: path{"id"}, prefix: "link_"},
	}
)

// Metadata returns the first non-empty metadata object found in data.
func Metadata(data map[string]any) map[string]any {
	for _, p := range metadataPaths {
		if obj := p.object(data); len(obj) > 0 {
			return obj
		}
	}
	return nil
}

func OrderID(data map[string]any) string {
	return path{"order_id"}.str(Metadata(data))
}

func PaymentReference(data map[string]any) string {
	return referenceChain.first(data)
}

// PaymentLinkID finds a payment link id that can be fetched to recover
// metadata missing from the event itself.
func PaymentLinkID(data map[string]any) string {
	return linkChain.first(data)
}
