package storage

// Warnings keeps per-chat, per-user warning counters.
type Warnings interface {
	Increment(chatID int64, userID int64) (int, error)
	Reset(chatID int64, userID int64) error
	Get(chatID int64, userID int64) int
	GetAll(chatID int64) map[int64]int
}
