package hub

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/pvaldez/pizza-express/models"
	"github.com/pvaldez/pizza-express/utils"
)

// Event types pushed to dashboard and tracking clients.
const (
	EventOrderUpdate    = "order_update"
	EventOrderCancelled = "order_cancelled"
	EventPaymentUpdate  = "payment_update"
	EventStaffNotif     = "staff_notification"
)

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Hub keeps the connected websocket clients (employee dashboards, admin
// views, customer tracking) and fans broadcasts out to them.
type Hub struct {
	clients map[*websocket.Conn]string // conn -> role
	mutex   sync.Mutex
}

var orderHub = Hub{
	clients: make(map[*websocket.Conn]string),
}

// RegisterClient adds a connection under its role.
func RegisterClient(conn *websocket.Conn, role string) {
	orderHub.mutex.Lock()
	defer orderHub.mutex.Unlock()
	orderHub.clients[conn] = role
}

// UnregisterClient drops and closes a connection.
func UnregisterClient(conn *websocket.Conn) {
	orderHub.mutex.Lock()
	defer orderHub.mutex.Unlock()
	delete(orderHub.clients, conn)
	conn.Close()
}

// BroadcastOrderUpdate pushes the order's new state to every client.
func BroadcastOrderUpdate(order models.Order) {
	broadcast(Message{
		Event: EventOrderUpdate,
		Data:  order,
	})
}

// BroadcastOrderCancelled announces a cancellation with its audit record.
func BroadcastOrderCancelled(order models.Order, cancellation models.OrderCancellation) {
	broadcast(Message{
		Event: EventOrderCancelled,
		Data: map[string]interface{}{
			"order":        order,
			"cancellation": cancellation,
		},
	})
}

// BroadcastPaymentUpdate announces a payment status change on an order.
func BroadcastPaymentUpdate(order models.Order) {
	broadcast(Message{
		Event: EventPaymentUpdate,
		Data: map[string]interface{}{
			"order_id":       order.ID,
			"order_token":    order.OrderToken,
			"payment_id":     order.PaymentID,
			"payment_status": order.PaymentStatus,
		},
	})
}

// BroadcastStaffNotification pushes a plain text notice to staff clients.
func BroadcastStaffNotification(message string) {
	broadcast(Message{
		Event: EventStaffNotif,
		Data:  message,
	})
}

func broadcast(msg Message) {
	orderHub.mutex.Lock()
	defer orderHub.mutex.Unlock()

	data, err := json.Marshal(msg)
	if err != nil {
		utils.ErrorLogger.Printf("hub: marshal message: %v", err)
		return
	}

	for conn := range orderHub.clients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			// Dead client; drop it and keep broadcasting.
			delete(orderHub.clients, conn)
			conn.Close()
		}
	}
}
