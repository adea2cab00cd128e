package otel

import "github.com/jyterencekim/decaton/kafka"

// KafkaHeadersCarrier adapts a record's header slice to the otel
// propagation.TextMapCarrier interface so trace context can ride along
// with the record.
type KafkaHeadersCarrier struct {
	Headers *[]kafka.Header
}

func NewKafkaHeadersCarrier(headers *[]kafka.Header) KafkaHeadersCarrier {
	return KafkaHeadersCarrier{Headers: headers}
}

// Get returns the first header value for key, or "" when absent.
func (c KafkaHeadersCarrier) Get(key string) string {
	v, ok := kafka.HeaderValue(*c.Headers, key)
	if !ok {
		return ""
	}
	return string(v)
}

// Set leaves the slice with exactly one header for key. Kafka allows
// duplicate keys, so any extra entries for the key are removed rather
// than updated in place.
func (c KafkaHeadersCarrier) Set(key, value string) {
	hs := *c.Headers
	kept := hs[:0]
	for _, h := range hs {
		if h.Key != key {
			kept = append(kept, h)
		}
	}
	*c.Headers = append(kept, kafka.Header{Key: key, Value: []byte(value)})
}

func (c KafkaHeadersCarrier) Keys() []string {
	keys := make([]string, 0, len(*c.Headers))
	for _, h := range *c.Headers {
		keys = append(keys, h.Key)
	}
	return keys
}
