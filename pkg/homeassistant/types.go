// Package homeassistant provides REST and WebSocket clients for the Home
// Assistant API. Both satisfy the service-caller surface the custom tool
// dispatcher needs: service existence checks and service invocation.
package homeassistant

import "time"

// State is one entity state as returned by GET /api/states.
type State struct {
	EntityID    string                 `json:"entity_id"`
	State       string                 `json:"state"`
	Attributes  map[string]interface{} `json:"attributes,omitempty"`
	LastChanged time.Time              `json:"last_changed,omitempty"`
	LastUpdated time.Time              `json:"last_updated,omitempty"`
}

// ServiceDomain is one entry of GET /api/services: a domain and the
// services it registers.
type ServiceDomain struct {
	Domain   string                 `json:"domain"`
	Services map[string]interface{} `json:"services"`
}
