package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"

	"github.com/yourusername/cbt-api/internal/websocket"
)

// WSHandler обрабатывает WebSocket-подписки на обновления лидерборда
type WSHandler struct {
	hub      *websocket.Hub
	upgrader gorilla.Upgrader
}

// NewWSHandler создает новый WebSocket-обработчик
func NewWSHandler(hub *websocket.Hub, allowedOrigins []string) *WSHandler {
	originSet := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		originSet[o] = struct{}{}
	}

	return &WSHandler{
		hub: hub,
		upgrader: gorilla.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					// Не-браузерные клиенты (без Origin) допускаются
					return true
				}
				_, ok := originSet[origin]
				return ok
			},
		},
	}
}

// Subscribe апгрейдит соединение и подписывает клиента на события
// лидерборда теста. Клиент получает leaderboard:updated при каждой
// финализации попытки или действии модерации.
func (h *WSHandler) Subscribe(c *gin.Context) {
	testID := c.MustGet("testID").(uint)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade сам пишет HTTP-ответ об ошибке
		log.Printf("[WSHandler] Ошибка апгрейда соединения: %v", err)
		return
	}

	client := websocket.NewClient(h.hub, conn, testID)
	h.hub.Register(client)
	go client.Run()
}
