package sse

import (
	"time"

	"github.com/smktahasus/psb_api/internal/models"
)

// RegistrationNotifier is the interface services use to emit registration
// events.
type RegistrationNotifier interface {
	NotifyRegistrationCreated(reg *models.Registration)
	NotifyRegistrationStatusChanged(reg *models.Registration)
	NotifyRegistrationSynced(reg *models.Registration)
}

// HubNotifier implements RegistrationNotifier using the SSE Hub.
type HubNotifier struct {
	hub *Hub
}

func NewHubNotifier(hub *Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

func (n *HubNotifier) NotifyRegistrationCreated(reg *models.Registration) {
	if n.hub.ClientCount() == 0 {
		return
	}
	n.hub.Broadcast(registrationToEvent(EventRegistrationCreated, reg))
}

func (n *HubNotifier) NotifyRegistrationStatusChanged(reg *models.Registration) {
	if n.hub.ClientCount() == 0 {
		return
	}
	n.hub.Broadcast(registrationToEvent(EventRegistrationStatusChanged, reg))
}

func (n *HubNotifier) NotifyRegistrationSynced(reg *models.Registration) {
	if n.hub.ClientCount() == 0 {
		return
	}
	n.hub.Broadcast(registrationToEvent(EventRegistrationSynced, reg))
}

func registrationToEvent(eventType EventType, reg *models.Registration) *RegistrationEvent {
	return &RegistrationEvent{
		Event:           eventType,
		NomorRegistrasi: reg.NomorRegistrasi,
		Status:          reg.Status,
		SubmittedVia:    reg.SubmittedVia,
		Synced:          reg.Synced,
		Timestamp:       time.Now(),
	}
}

// NopNotifier is a no-op implementation for when SSE is not needed.
type NopNotifier struct{}

func (n *NopNotifier) NotifyRegistrationCreated(reg *models.Registration)       {}
func (n *NopNotifier) NotifyRegistrationStatusChanged(reg *models.Registration) {}
func (n *NopNotifier) NotifyRegistrationSynced(reg *models.Registration)        {}
