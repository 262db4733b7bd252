package dashboard

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/todomirror/todomirror/internal/mirror/db"
	"github.com/todomirror/todomirror/internal/mirror/sync"
)

// SyncCompleteData is the payload of a sync_complete message
type SyncCompleteData struct {
	Trigger    string `json:"trigger"`
	Written    int    `json:"written"`
	Skipped    bool   `json:"skipped"`
	DurationMs int64  `json:"durationMs"`
}

// ClearedData is the payload of a cleared message
type ClearedData struct {
	Removed int `json:"removed"`
}

// StatsFunc returns the current mirror statistics.
type StatsFunc func(ctx context.Context) (*db.Statistics, error)

// Handler turns syncer events into dashboard messages.
// It implements sync.Observer.
type Handler struct {
	hub    *Hub
	stats  StatsFunc
	logger *log.Logger
}

var _ sync.Observer = (*Handler)(nil)

// NewHandler creates a handler broadcasting through hub. stats may be nil,
// in which case no stats messages are sent.
func NewHandler(hub *Hub, stats StatsFunc, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{hub: hub, stats: stats, logger: logger}
}

// OnResync handles completed resyncs
func (h *Handler) OnResync(trigger sync.Trigger, result sync.Result) {
	h.broadcast(MessageTypeSyncComplete, SyncCompleteData{
		Trigger:    string(trigger),
		Written:    result.Written,
		Skipped:    result.Skipped,
		DurationMs: result.Duration.Milliseconds(),
	})
	h.BroadcastStats()
}

// OnClear handles mirror clears
func (h *Handler) OnClear(removed int) {
	h.broadcast(MessageTypeCleared, ClearedData{Removed: removed})
	h.BroadcastStats()
}

// BroadcastStats sends the current statistics to all clients.
func (h *Handler) BroadcastStats() {
	if h.stats == nil {
		return
	}
	h.hub.Broadcast(h.StatsMessage(context.Background()))
}

// StatsMessage builds a stats message. It is suitable as Config.Welcome.
// On failure the message carries no data.
func (h *Handler) StatsMessage(ctx context.Context) Message {
	msg := Message{Type: MessageTypeStats, Timestamp: time.Now()}
	if h.stats == nil {
		return msg
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	stats, err := h.stats(ctx)
	if err != nil {
		h.logger.Printf("Failed to read statistics: %v", err)
		return msg
	}

	data, err := json.Marshal(stats)
	if err != nil {
		h.logger.Printf("Failed to marshal statistics: %v", err)
		return msg
	}
	msg.Data = data
	return msg
}

func (h *Handler) broadcast(t MessageType, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Printf("Failed to marshal %s data: %v", t, err)
		return
	}
	h.hub.Broadcast(Message{Type: t, Timestamp: time.Now(), Data: data})
}
