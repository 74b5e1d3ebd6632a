package sqlite

import "github.com/rpggio/diyassist/internal/storage"

// NewStore wires every SQLite repository over db.
func NewStore(db *DB) *storage.Store {
	return &storage.Store{
		Projects:      NewProjectRepository(db),
		Steps:         NewStepRepository(db),
		Conversations: NewConversationRepository(db),
		APIKeys:       NewAPIKeyRepository(db),
		Close:         db.Shutdown,
	}
}
