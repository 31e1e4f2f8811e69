package api

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"

	subscriberBuffer = 16
	writeWait        = 10 * time.Second
)

type CommentEvent struct {
	Event   string      `json:"event"`
	Comment commentView `json:"comment"`
}

// CommentHub рассылает события комментариев подписчикам поста
type CommentHub struct {
	subscribers map[int64]map[chan CommentEvent]struct{}
	mu          sync.RWMutex
}

func NewCommentHub() *CommentHub {
	return &CommentHub{
		subscribers: make(map[int64]map[chan CommentEvent]struct{}),
	}
}

// Subscribe возвращает канал событий поста и функцию отписки.
// Канал закрывается при отписке или удалении поста.
func (h *CommentHub) Subscribe(postID int64) (<-chan CommentEvent, func()) {
	ch := make(chan CommentEvent, subscriberBuffer)

	h.mu.Lock()
	if h.subscribers[postID] == nil {
		h.subscribers[postID] = make(map[chan CommentEvent]struct{})
	}
	h.subscribers[postID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if subs, ok := h.subscribers[postID]; ok {
			if _, ok := subs[ch]; ok {
				delete(subs, ch)
				close(ch)
			}
			if len(subs) == 0 {
				delete(h.subscribers, postID)
			}
		}
	}
	return ch, cancel
}

// Publish не блокируется: медленный подписчик теряет событие
func (h *CommentHub) Publish(postID int64, event CommentEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subscribers[postID] {
		select {
		case ch <- event:
		default:
			log.Printf("Подписчик поста %d не успевает, событие %s пропущено", postID, event.Event)
		}
	}
}

// ClosePost закрывает каналы всех подписчиков поста
func (h *CommentHub) ClosePost(postID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subscribers[postID] {
		close(ch)
	}
	delete(h.subscribers, postID)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (h *Handler) streamComments(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "post_id")
	if err != nil {
		WriteError(w, err)
		return
	}

	// Подписка до проверки поста: удаление после проверки закроет канал,
	// удаление до нее дает 404. Подписка до upgrade не теряет события после рукопожатия.
	events, cancel := h.hub.Subscribe(postID)
	defer cancel()

	if _, err := h.storage.GetPost(r.Context(), postID); err != nil {
		WriteError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Ошибка websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	// Чтение нужно для обработки управляющих кадров и закрытия со стороны клиента
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "post deleted"),
					time.Now().Add(writeWait))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(event); err != nil {
				log.Printf("Ошибка отправки события комментария: %v", err)
				return
			}
		case <-done:
			return
		}
	}
}
