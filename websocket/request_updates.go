package websocket

import (
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"assethub/models"
)

// RequestUpdate represents a real-time request lifecycle event
type RequestUpdate struct {
	Type      string      `json:"type"` // REQUEST_CREATED, REQUEST_APPROVED, REQUEST_REJECTED, ASSET_RETURNED
	RequestID string      `json:"requestId"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// BroadcastRequestUpdate sends the update to every connection belonging to
// the named accounts. Clients whose buffers are full are dropped on the spot.
func BroadcastRequestUpdate(update RequestUpdate, emails ...string) {
	data, err := json.Marshal(update)
	if err != nil {
		logrus.Errorf("Failed to marshal request update: %v", err)
		return
	}

	hub.mutex.Lock()
	defer hub.mutex.Unlock()

	for _, email := range emails {
		clients, ok := hub.clients[email]
		if !ok {
			continue
		}
		for client := range clients {
			select {
			case client.send <- data:
			default:
				close(client.send)
				delete(clients, client)
			}
		}
		if len(clients) == 0 {
			delete(hub.clients, email)
		}
	}
}

// SendRequestCreated tells the HR inbox a new request arrived.
func SendRequestCreated(req *models.Request) {
	BroadcastRequestUpdate(RequestUpdate{
		Type:      "REQUEST_CREATED",
		RequestID: req.ID.Hex(),
		Data:      req,
		Timestamp: time.Now(),
	}, req.HREmail)
}

// SendRequestDecided tells both sides how a request was decided.
func SendRequestDecided(req *models.Request, status string) {
	eventType := "REQUEST_APPROVED"
	if status == models.RequestRejected {
		eventType = "REQUEST_REJECTED"
	}
	BroadcastRequestUpdate(RequestUpdate{
		Type:      eventType,
		RequestID: req.ID.Hex(),
		Data: map[string]interface{}{
			"assetName":      req.AssetName,
			"requesterEmail": req.RequesterEmail,
			"status":         status,
		},
		Timestamp: time.Now(),
	}, req.RequesterEmail, req.HREmail)
}

// SendAssetReturned tells both sides a unit came back into stock.
func SendAssetReturned(req *models.Request) {
	BroadcastRequestUpdate(RequestUpdate{
		Type:      "ASSET_RETURNED",
		RequestID: req.ID.Hex(),
		Data: map[string]interface{}{
			"assetName":      req.AssetName,
			"requesterEmail": req.RequesterEmail,
		},
		Timestamp: time.Now(),
	}, req.RequesterEmail, req.HREmail)
}
