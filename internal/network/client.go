package network

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/halvard-m/starlanes/server/internal/domain/station"
	"github.com/halvard-m/starlanes/server/internal/platform/metrics"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

// ObserverCommand represents an incoming command from the frontend.
type ObserverCommand struct {
	Type      string `json:"type"` // "SELECT_STATION", "DESELECT_STATION"
	StationID int    `json:"station_id"`
}

// Client represents an active WebSocket observer connection.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	limiter  *rate.Limiter
	selected int // station id this observer is watching, -1 for none
}

// NewClient creates a new WebSocket client.
func NewClient(hub *Hub, conn *websocket.Conn, sendBuffer int, msgRate float64, msgBurst int) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		limiter:  rate.NewLimiter(rate.Limit(msgRate), msgBurst),
		selected: -1,
	}
}

// Register adds the client to the hub.
func (c *Client) Register() {
	c.hub.register <- c
}

// ReadPump pumps commands from the websocket connection into the engine.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Error("WebSocket read error: " + err.Error())
				metrics.Get().RecordWSError()
			}
			break
		}
		metrics.Get().RecordWSMessage(true)

		var cmd ObserverCommand
		if err := json.Unmarshal(message, &cmd); err != nil {
			c.hub.logger.Error("Failed to parse ObserverCommand from WebSocket: " + err.Error())
			continue
		}

		c.handleCommand(cmd)
	}
}

func (c *Client) handleCommand(cmd ObserverCommand) {
	if !c.limiter.Allow() {
		c.hub.logger.Warn("Rate limit exceeded for observer command " + cmd.Type)
		return
	}

	switch cmd.Type {
	case "SELECT_STATION":
		c.handleSelectStation(cmd.StationID)
	case "DESELECT_STATION":
		c.handleDeselectStation()
	default:
		c.hub.logger.Warn("Unknown ObserverCommand type: " + cmd.Type)
	}
}

// handleSelectStation marks the station selected and immediately sends
// this observer a display snapshot of it.
func (c *Client) handleSelectStation(stationID int) {
	var display *station.Display
	c.hub.engine.Do(func() {
		if c.selected >= 0 {
			if prev := c.hub.engine.Registry().StationByID(c.selected); prev != nil {
				prev.Core().SetSelected(false)
			}
		}
		ent := c.hub.engine.Registry().StationByID(stationID)
		if ent == nil {
			return
		}
		ent.Core().SetSelected(true)
		c.selected = stationID
		d := ent.Core().BuildDisplay()
		display = &d
	})

	if display == nil {
		c.hub.logger.Warn(fmt.Sprintf("Observer selected unknown station %d", stationID))
		return
	}

	payload, err := json.Marshal(map[string]interface{}{
		"type":    "STATION_DISPLAY",
		"station": display,
	})
	if err != nil {
		c.hub.logger.Error("Failed to serialize station display: " + err.Error())
		return
	}
	select {
	case c.send <- payload:
		metrics.Get().RecordWSMessage(false)
	default:
	}
}

func (c *Client) handleDeselectStation() {
	c.hub.engine.Do(func() {
		if c.selected >= 0 {
			if prev := c.hub.engine.Registry().StationByID(c.selected); prev != nil {
				prev.Core().SetSelected(false)
			}
		}
		c.selected = -1
	})
}

// WritePump pumps messages from the hub to the websocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Drain anything already queued into the same frame batch.
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
