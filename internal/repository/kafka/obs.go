package kafka

import "github.com/segmentio/kafka-go"

// headerCarrier adapts message headers to a propagation.TextMapCarrier.
type headerCarrier map[string]string

func (m headerCarrier) Get(k string) string { return m[k] }
func (m headerCarrier) Set(k, v string)     { m[k] = v }
func (m headerCarrier) Keys() []string {
	ks := make([]string, 0, len(m))
	for k := range m {
		ks = append(ks, k)
	}
	return ks
}

func (m headerCarrier) toKafka() []kafka.Header {
	hs := make([]kafka.Header, 0, len(m))
	for k, v := range m {
		hs = append(hs, kafka.Header{Key: k, Value: []byte(v)})
	}
	return hs
}
