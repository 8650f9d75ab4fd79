package session

import "github.com/claude/recoverycoach/internal/models"

// chatWindow is a FIFO ring of the most recent turns.
type chatWindow struct {
	buf   []models.ChatTurn
	start int
	size  int
}

func newChatWindow(capacity int) chatWindow {
	return chatWindow{buf: make([]models.ChatTurn, capacity)}
}

func (w *chatWindow) push(t models.ChatTurn) {
	if len(w.buf) == 0 {
		return
	}
	if w.size < len(w.buf) {
		w.buf[(w.start+w.size)%len(w.buf)] = t
		w.size++
		return
	}
	// full: overwrite the oldest
	w.buf[w.start] = t
	w.start = (w.start + 1) % len(w.buf)
}

// last returns up to n most recent turns, oldest first.
func (w *chatWindow) last(n int) []models.ChatTurn {
	if n > w.size {
		n = w.size
	}
	out := make([]models.ChatTurn, n)
	skip := w.size - n
	for i := 0; i < n; i++ {
		out[i] = w.buf[(w.start+skip+i)%len(w.buf)]
	}
	return out
}

// AppendChat records a turn for uid, evicting the oldest turn once the
// window is full.
func (s *Store) AppendChat(uid string, role models.Role, content string) {
	u := s.user(uid, true)
	u.mu.Lock()
	u.chat.push(models.ChatTurn{Role: role, Content: content})
	u.mu.Unlock()
}

// ChatHistory returns at most ChatCap most recent turns in chronological order.
func (s *Store) ChatHistory(uid string) []models.ChatTurn {
	u := s.user(uid, false)
	if u == nil {
		return []models.ChatTurn{}
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.chat.last(s.ChatCap())
}
