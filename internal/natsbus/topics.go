package natsbus

import "fmt"

// Topic patterns for NATS pub/sub communication.

func TopicRelayRun(runID string) string {
	return fmt.Sprintf("events.relay.%s", runID)
}

const (
	TopicStatus        = "events.status"
	TopicEventsAll     = "events.>"
	TopicScheduleFired = "events.schedule.fired"
)
