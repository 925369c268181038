package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"indicator-observer/src/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// handleWebsockets is the main Hub loop
func (s *APIServer) handleWebsockets() {
	for {
		select {
		case <-s.quit:
			s.clientsMu.Lock()
			for client := range s.clients {
				delete(s.clients, client)
				client.close()
			}
			s.clientsMu.Unlock()
			return

		case client := <-s.register:
			s.clientsMu.Lock()
			s.clients[client] = struct{}{}
			s.clientsMu.Unlock()

		case client := <-s.unregister:
			s.clientsMu.Lock()
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				client.close()
			}
			s.clientsMu.Unlock()

		case event := <-s.broadcast:
			s.clientsMu.Lock()
			for client := range s.clients {
				if !client.wants(event.Country) {
					continue
				}
				if !client.trySend(event) {
					// Slow consumers are dropped so the hub never blocks
					delete(s.clients, client)
					client.close()
				}
			}
			s.clientsMu.Unlock()
		}
	}
}

// -----------------------------------------------------------------------------
// Data Exchange Interface Implementation
// -----------------------------------------------------------------------------

// Broadcast queues a refresh event for subscribed clients. It never blocks:
// when the queue is full or the server is stopping the event is dropped.
func (s *APIServer) Broadcast(event models.MRefreshEvent) {
	select {
	case <-s.quit:
		return
	default:
	}

	select {
	case s.broadcast <- event:
	default:
		s.Logger.Warning("Broadcast queue full, dropping refresh for %s", event.Country)
	}
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *APIServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := newClient(s, conn)

	select {
	case s.register <- client:
	case <-s.quit:
		conn.Close()
		return
	}

	// Start goroutines for reading/writing
	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

// HandleClientMessage applies a subscribe command. A command with no
// countries subscribes to every country.
func (s *APIServer) HandleClientMessage(client *Client, message []byte) {
	var cmd models.MSubscribeCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.Logger.Info("Failed to parse client command: %v, disconnecting client", err)
		client.conn.Close()
		return
	}

	if cmd.Command != "subscribe" {
		return
	}

	countries := make([]string, 0, len(cmd.Countries))
	for _, country := range cmd.Countries {
		if trimmed := strings.TrimSpace(country); trimmed != "" {
			countries = append(countries, trimmed)
		}
	}
	client.subscribe(countries)

	// The hub prunes clients whose buffer stays full
	client.trySend(models.MSubscribedEvent{Type: "SUBSCRIBED", Countries: countries})
}
