package services

import (
	"encoding/json"
	"log"
)

// publishEvent sends a catalog event, logging instead of failing the
// request when the broker is unavailable or not configured.
func publishEvent(publisher EventPublisher, routingKey string, payload map[string]interface{}) {
	if publisher == nil {
		log.Printf("Event publisher is not initialized. Skipping %s event.", routingKey)
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Failed to marshal %s event: %v", routingKey, err)
		return
	}
	if err := publisher.Publish(routingKey, body); err != nil {
		log.Printf("Warning: failed to publish %s event: %v", routingKey, err)
	}
}
