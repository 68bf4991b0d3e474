package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Время, которое разрешено писать сообщение клиенту.
	writeWait = 10 * time.Second

	// Время, которое разрешено клиенту читать следующее сообщение.
	pongWait = 30 * time.Second

	// Периодичность отправки ping-сообщений клиенту.
	pingPeriod = (pongWait * 9) / 10

	// Максимальный размер входящего сообщения. Клиенты лидерборда
	// ничего содержательного не отправляют, только pong.
	maxMessageSize = 512

	// Размер буфера канала отправки сообщений клиенту
	clientBufferSize = 64
)

// Event — сообщение, рассылаемое подписчикам лидерборда
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// LeaderboardUpdatedPayload — данные события leaderboard:updated
type LeaderboardUpdatedPayload struct {
	TestID uint `json:"test_id"`
}

// Hub ведет подписчиков лидерборда по тестам и рассылает события
// об изменении результатов. Реализует service.LeaderboardNotifier.
type Hub struct {
	mu sync.RWMutex
	// подписчики по ID теста
	subscribers map[uint]map[*Client]struct{}
}

// NewHub создает новый хаб
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[uint]map[*Client]struct{}),
	}
}

// Register подключает клиента к рассылке лидерборда теста
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.subscribers[client.testID]
	if !ok {
		clients = make(map[*Client]struct{})
		h.subscribers[client.testID] = clients
	}
	clients[client] = struct{}{}
	log.Printf("[WebSocketHub] Клиент подписан на лидерборд теста #%d (всего %d)", client.testID, len(clients))
}

// Unregister отключает клиента и закрывает его канал отправки
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.subscribers[client.testID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.subscribers, client.testID)
	}
}

// NotifyLeaderboardUpdated рассылает событие leaderboard:updated
// всем подписчикам теста. Медленные клиенты отключаются, а не
// блокируют рассылку.
func (h *Hub) NotifyLeaderboardUpdated(testID uint) {
	event := Event{
		Type: "leaderboard:updated",
		Data: LeaderboardUpdatedPayload{TestID: testID},
	}
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("[WebSocketHub] Ошибка сериализации события: %v", err)
		return
	}

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.subscribers[testID]))
	for client := range h.subscribers[testID] {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	slow := 0
	for _, client := range clients {
		select {
		case client.send <- payload:
		default:
			slow++
			go h.Unregister(client)
		}
	}
	if slow > 0 {
		log.Printf("[WebSocketHub] Отключено %d медленных клиентов теста #%d", slow, testID)
	}
}

// SubscriberCount возвращает количество подписчиков теста
func (h *Hub) SubscriberCount(testID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[testID])
}

// Client является посредником между WebSocket соединением и хабом
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	testID uint
	send   chan []byte
}

// NewClient создает клиента для подписки на лидерборд теста
func NewClient(hub *Hub, conn *websocket.Conn, testID uint) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		testID: testID,
		send:   make(chan []byte, clientBufferSize),
	}
}

// Run запускает насосы чтения и записи. Возвращается после
// закрытия соединения.
func (c *Client) Run() {
	go c.writePump()
	c.readPump()
}

// readPump читает входящие сообщения только ради контроля соединения:
// обновляет дедлайн по pong и замечает закрытие.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[WebSocketHub] Неожиданное закрытие соединения: %v", err)
			}
			return
		}
	}
}

// writePump отправляет события из канала send и периодические ping
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Хаб закрыл канал
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
