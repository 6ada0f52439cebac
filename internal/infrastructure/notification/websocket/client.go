package websocket

import (
	"time"

	"github.com/dreschagin/session-monitor/pkg/logger"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Время ожидания для write операций
	writeWait = 10 * time.Second

	// Время ожидания pong от клиента
	pongWait = 60 * time.Second

	// Интервал ping сообщений (должен быть меньше pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Клиенты только слушают, входящие сообщения короткие
	maxMessageSize = 512

	sendBufferSize = 64
)

// Client - WebSocket подключение, оно же отслеживаемая сессия
type Client struct {
	id     string
	conn   *websocket.Conn
	hub    *Hub
	send   chan Message
	logger *logger.Logger
}

// NewClient создает клиента с новым идентификатором сессии
func NewClient(hub *Hub, conn *websocket.Conn, logger *logger.Logger) *Client {
	return newClient(uuid.New().String(), hub, conn, logger)
}

func newClient(id string, hub *Hub, conn *websocket.Conn, logger *logger.Logger) *Client {
	return &Client{
		id:     id,
		conn:   conn,
		hub:    hub,
		send:   make(chan Message, sendBufferSize),
		logger: logger,
	}
}

// SessionID возвращает идентификатор сессии клиента
func (c *Client) SessionID() string {
	return c.id
}

// trySend кладет сообщение в буфер клиента без блокировки.
// Вызывается только hub'ом, пока клиент зарегистрирован.
func (c *Client) trySend(msg Message) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// ReadPump читает сообщения от клиента и отслеживает разрыв соединения.
// Запускается в отдельной goroutine
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error("WebSocket set read deadline error", err)
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("WebSocket read error", "session_id", c.id, "error", err.Error())
			}
			return
		}
	}
}

// WritePump отправляет сообщения клиенту
// Запускается в отдельной goroutine
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				// Hub закрыл канал
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Warn("WebSocket write error", "session_id", c.id, "error", err.Error())
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
