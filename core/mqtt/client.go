// Package mqtt defines the transport used to publish grid telemetry.
package mqtt

// Client publishes payloads on MQTT topics.
type Client interface {
	Publish(topic string, payload []byte, retained bool) error
}

// Topics names the telemetry topics under a common prefix.
type Topics struct {
	Prefix string
}

// DefaultPrefix roots every topic when none is configured.
const DefaultPrefix = "microgrid"

func (t Topics) prefix() string {
	if t.Prefix == "" {
		return DefaultPrefix
	}
	return t.Prefix
}

func (t Topics) Tick() string     { return t.prefix() + "/tick" }
func (t Topics) Snapshot() string { return t.prefix() + "/snapshot" }
func (t Topics) Alerts() string   { return t.prefix() + "/alerts" }
func (t Topics) Events() string   { return t.prefix() + "/events" }
func (t Topics) Status() string   { return t.prefix() + "/status" }
