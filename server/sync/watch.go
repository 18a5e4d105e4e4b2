package serversync

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/Pjt727/homeroom/calsync"
	"github.com/Pjt727/homeroom/server/components"
	"github.com/a-h/templ"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/robert-nix/ansihtml"
	log "github.com/sirupsen/logrus"
)

// a user may open the sync page in several tabs, each tab is a watcher and
// every watcher of the user gets every transition and log line of that
// user's syncs. Messages are dropped for watchers which are not keeping up,
// the final state of a sync can always be read back from /sync/calendars.

const watcherBuffer = 64

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // cors is handled by the router
	},
}

// Hub fans sync progress out to websocket watchers. It is a calsync.Observer
// for transitions and a logrus hook for log lines.
type Hub struct {
	mu        sync.Mutex
	watchers  map[uuid.UUID]*watcher
	formatter log.Formatter
	logger    *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		watchers: make(map[uuid.UUID]*watcher),
		formatter: &log.TextFormatter{
			ForceColors:      true,
			DisableTimestamp: true,
		},
		logger: logger,
	}
}

type watcher struct {
	id     uuid.UUID
	userID string
	conn   *websocket.Conn
	send   chan []byte
	once   sync.Once
	hub    *Hub
}

func (h *Hub) Observe(t calsync.Transition) {
	h.publish(t.UserID, components.SyncState(t))
}

func (h *Hub) Levels() []log.Level {
	return []log.Level{log.PanicLevel, log.FatalLevel, log.ErrorLevel, log.WarnLevel, log.InfoLevel}
}

// Fire forwards entries logged with a user field, other entries are not
// part of a sync
func (h *Hub) Fire(entry *log.Entry) error {
	userID, ok := entry.Data["user"].(string)
	if !ok || !h.watching(userID) {
		return nil
	}
	subjectID, _ := entry.Data["subject"].(string)
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	line = bytes.TrimRight(line, "\n")
	h.publish(userID, components.SyncLog(subjectID, string(ansihtml.ConvertToHTML(line))))
	return nil
}

// WatcherCount is the number of open watchers of the user
func (h *Hub) WatcherCount(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, w := range h.watchers {
		if w.userID == userID {
			n++
		}
	}
	return n
}

func (h *Hub) watching(userID string) bool {
	return h.WatcherCount(userID) > 0
}

func (h *Hub) publish(userID string, c templ.Component) {
	if !h.watching(userID) {
		return
	}
	var buf bytes.Buffer
	if err := c.Render(context.Background(), &buf); err != nil {
		h.logger.Error("Could not render sync fragment", "err", err)
		return
	}
	msg := buf.Bytes()

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, w := range h.watchers {
		if w.userID != userID {
			continue
		}
		select {
		case w.send <- msg:
		default:
			h.logger.Warn("watcher is behind, dropping message", "watcher", w.id)
		}
	}
}

func (h *Hub) watch(w http.ResponseWriter, r *http.Request) {
	u := userFrom(r.Context())
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Info("Could not upgrade", "err", err)
		return
	}

	wt := &watcher{
		id:     uuid.New(),
		userID: u.ID,
		conn:   conn,
		send:   make(chan []byte, watcherBuffer),
		hub:    h,
	}
	h.mu.Lock()
	h.watchers[wt.id] = wt
	h.mu.Unlock()
	h.logger.Debug("watcher connected", "watcher", wt.id, "user", u.ID)

	go wt.writePump()
	go wt.readPump()
}

// watchers never send anything, reading only notices the close
func (wt *watcher) readPump() {
	defer wt.disconnect()
	for {
		if _, _, err := wt.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(
				err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
			) {
				wt.hub.logger.Info("watcher closed", "watcher", wt.id, "err", err)
			}
			return
		}
	}
}

func (wt *watcher) writePump() {
	for message := range wt.send {
		if err := wt.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			wt.hub.logger.Error("Channel error: ", "err", err)
			wt.disconnect()
			break
		}
	}
	wt.conn.WriteMessage(websocket.CloseMessage, []byte{})
	wt.conn.Close()
}

func (wt *watcher) disconnect() {
	wt.once.Do(func() {
		wt.hub.mu.Lock()
		delete(wt.hub.watchers, wt.id)
		close(wt.send)
		wt.hub.mu.Unlock()
	})
}
