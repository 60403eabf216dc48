package services

import (
	"sync"

	"go.uber.org/zap"
)

// ProgressUpdate is the payload broadcast after any skill progression
// mutation, e.g. to a live dashboard connection.
type ProgressUpdate struct {
	UserID          uint    `json:"userId"`
	SkillName       string  `json:"skillName"`
	XP              int64   `json:"xp"`
	Level           int     `json:"level"`
	LevelLabel      string  `json:"levelLabel"`
	VerifiedStatus  string  `json:"verifiedStatus"`
	RiskScore       float64 `json:"riskScore"`
	SuppressedScore int     `json:"suppressedScore"`
}

// Observer receives progress updates. Implementations must not block for
// long; each delivery runs on its own goroutine but slow observers still pin
// goroutines.
type Observer interface {
	ProgressUpdated(update ProgressUpdate)
}

// Notifier is an explicit connection registry passed to its consumers by
// reference, not a process-wide singleton. Broadcasts are fire-and-forget.
type Notifier struct {
	log *zap.Logger

	mu        sync.RWMutex
	nextID    int
	observers map[int]Observer
}

func NewNotifier(log *zap.Logger) *Notifier {
	return &Notifier{
		log:       log,
		observers: make(map[int]Observer),
	}
}

// Register adds an observer and returns a function that removes it again.
func (n *Notifier) Register(o Observer) (unregister func()) {
	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.observers[id] = o
	n.mu.Unlock()

	return func() {
		n.mu.Lock()
		delete(n.observers, id)
		n.mu.Unlock()
	}
}

// Broadcast delivers the update to every registered observer asynchronously.
func (n *Notifier) Broadcast(update ProgressUpdate) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	n.log.Debug("Broadcasting progress update",
		zap.Uint("userID", update.UserID),
		zap.String("skill", update.SkillName),
		zap.Int("observers", len(n.observers)),
	)
	for _, o := range n.observers {
		go o.ProgressUpdated(update)
	}
}
