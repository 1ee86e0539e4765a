package mqtt

import "testing"

func TestTopics(t *testing.T) {
	var def Topics
	if def.Tick() != "microgrid/tick" || def.Status() != "microgrid/status" {
		t.Fatalf("unexpected default topics: %s %s", def.Tick(), def.Status())
	}
	site := Topics{Prefix: "site/a"}
	if site.Snapshot() != "site/a/snapshot" || site.Alerts() != "site/a/alerts" || site.Events() != "site/a/events" {
		t.Fatalf("unexpected prefixed topics")
	}
}
