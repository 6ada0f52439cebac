package websocket

import (
	"context"
	"sync"

	"github.com/dreschagin/session-monitor/internal/application/dto"
	"github.com/dreschagin/session-monitor/internal/application/port"
	"github.com/dreschagin/session-monitor/pkg/logger"
)

// Типы сообщений, отправляемых клиентам
const (
	MessageTypeSession = "session"
	MessageTypeReport  = "report"
	MessageTypeAlert   = "alert"
)

// Hub управляет WebSocket клиентами и рассылает сообщения.
// Реализует port.NotificationService; каждое подключение - отслеживаемая сессия,
// о ее открытии и закрытии hub сообщает в port.SessionLifecycleHandler.
type Hub struct {
	// Зарегистрированные клиенты
	clients map[*Client]struct{}

	broadcast      chan *dto.SessionReportDTO
	broadcastAlert chan *dto.AlertDTO
	register       chan *Client
	unregister     chan *Client

	// done закрывается при остановке Run
	done chan struct{}

	// Mutex для защиты clients map
	mu sync.RWMutex

	lifecycle port.SessionLifecycleHandler
	logger    *logger.Logger
}

// NewHub создает новый WebSocket hub; lifecycle может быть nil
func NewHub(lifecycle port.SessionLifecycleHandler, logger *logger.Logger) *Hub {
	return &Hub{
		clients:        make(map[*Client]struct{}),
		broadcast:      make(chan *dto.SessionReportDTO, 256),
		broadcastAlert: make(chan *dto.AlertDTO, 256),
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		done:           make(chan struct{}),
		lifecycle:      lifecycle,
		logger:         logger,
	}
}

// Run запускает hub (должен быть запущен в отдельной goroutine) до отмены ctx
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("WebSocket hub started")
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			total := len(h.clients)
			h.mu.Unlock()

			h.sessionOpened(client)
			client.trySend(Message{Type: MessageTypeSession, Data: map[string]string{"sessionId": client.id}})
			h.logger.Debug("Client registered", "session_id", client.id, "total_clients", total)

		case client := <-h.unregister:
			if h.remove(client) {
				h.logger.Debug("Client unregistered", "session_id", client.id, "total_clients", h.ClientCount())
			}

		case report := <-h.broadcast:
			h.fanOut(Message{Type: MessageTypeReport, Data: report})

		case alert := <-h.broadcastAlert:
			h.fanOut(Message{Type: MessageTypeAlert, Data: alert})
			h.logger.Debug("Alert broadcasted to clients", "level", alert.Level)

		case <-ctx.Done():
			h.shutdown()
			h.logger.Info("WebSocket hub stopped")
			return
		}
	}
}

// fanOut рассылает сообщение; медленные клиенты отключаются
func (h *Hub) fanOut(msg Message) {
	h.mu.RLock()
	slow := make([]*Client, 0)
	for client := range h.clients {
		if !client.trySend(msg) {
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		if h.remove(client) {
			h.logger.Warn("Client channel full, disconnected", "session_id", client.id)
		}
	}
}

// remove удаляет клиента и закрывает сессию; повторный вызов ничего не делает
func (h *Hub) remove(client *Client) bool {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return false
	}
	delete(h.clients, client)
	close(client.send)
	h.mu.Unlock()

	h.sessionClosed(client)
	return true
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
		delete(h.clients, client)
		close(client.send)
	}
	h.mu.Unlock()

	for _, client := range clients {
		h.sessionClosed(client)
	}
}

func (h *Hub) sessionOpened(client *Client) {
	if h.lifecycle != nil {
		h.lifecycle.OnOpened(client.id)
	}
}

func (h *Hub) sessionClosed(client *Client) {
	if h.lifecycle != nil {
		h.lifecycle.OnClosed(client.id)
	}
}

// Done закрывается, когда Run завершился и сессии всех клиентов закрыты
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Register регистрирует нового клиента
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

// Unregister удаляет клиента
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast отправляет отчет всем клиентам (реализация port.NotificationService)
func (h *Hub) Broadcast(report *dto.SessionReportDTO) {
	select {
	case h.broadcast <- report:
	default:
		h.logger.Warn("Broadcast channel full, dropping report")
	}
}

// BroadcastAlert отправляет alert всем клиентам (реализация port.NotificationService)
func (h *Hub) BroadcastAlert(alert *dto.AlertDTO) {
	select {
	case h.broadcastAlert <- alert:
	default:
		h.logger.Warn("Broadcast alert channel full, dropping alert")
	}
}

// ClientCount возвращает количество подключенных клиентов (реализация port.NotificationService)
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Message представляет сообщение для отправки клиенту
type Message struct {
	Type string      `json:"type"` // "session", "report" или "alert"
	Data interface{} `json:"data"`
}
