package eventbus

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/yuqie6/SchoolQuest/internal/schema"
)

// Filter 订阅条件，零值字段不参与过滤
type Filter struct {
	RecipientID int64
	ClassID     int64
	Kinds       []schema.NotificationKind
}

func (f Filter) match(n schema.Notification) bool {
	if f.RecipientID != 0 && f.RecipientID != n.RecipientID {
		return false
	}
	if f.ClassID != 0 && f.ClassID != n.ClassID {
		return false
	}
	if len(f.Kinds) == 0 {
		return true
	}
	for _, k := range f.Kinds {
		if k == n.Kind {
			return true
		}
	}
	return false
}

// Hub 进程内通知分发：事务提交后由门面调用 Publish
// 投递是尽力而为的，持久化的发件箱才是事实来源
type Hub struct {
	mu      sync.RWMutex
	subs    map[chan schema.Notification]Filter
	dropped atomic.Int64
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan schema.Notification]Filter)}
}

func (h *Hub) Publish(n schema.Notification) {
	if h == nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch, f := range h.subs {
		if !f.match(n) {
			continue
		}
		select {
		case ch <- n:
		default:
			// 慢消费者直接丢弃，避免阻塞进度事件
			h.dropped.Add(1)
			slog.Debug("订阅者缓冲已满，丢弃通知", "id", n.ID, "kind", n.Kind, "recipient_id", n.RecipientID)
		}
	}
}

// Subscribe ctx 结束后自动退订并关闭 channel
func (h *Hub) Subscribe(ctx context.Context, f Filter, buffer int) <-chan schema.Notification {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan schema.Notification, buffer)

	h.mu.Lock()
	h.subs[ch] = f
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
		close(ch)
	}()

	return ch
}

// Dropped 因订阅者缓冲已满而丢弃的通知数
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}
