package state

import "time"

// JournalType classifies a journal entry.
type JournalType string

const (
	JournalScene            JournalType = "scene"
	JournalChoice           JournalType = "choice"
	JournalExamine          JournalType = "examine"
	JournalItemFound        JournalType = "item_found"
	JournalWorldGenerated   JournalType = "world_generated"
	JournalGenreSelected    JournalType = "genre_selected"
	JournalPersonaSelected  JournalType = "persona_selected"
	JournalSystem           JournalType = "system"
	JournalCustomAction     JournalType = "custom_action"
	JournalActionImpossible JournalType = "action_impossible"
)

// ImageQuotaNotice is the system entry written when image generation is
// permanently disabled. It survives genre reselection.
const ImageQuotaNotice = "Image generation quota reached. Images are disabled for this and future adventures."

// JournalEntry is one line of the append-only adventure log.
type JournalEntry struct {
	Type      JournalType `json:"type"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
}

// AppendJournal adds an entry to the log.
func (gs *GameState) AppendJournal(t JournalType, content string, at time.Time) {
	gs.Journal = append(gs.Journal, JournalEntry{Type: t, Content: content, Timestamp: at})
}

// RetainSelectionJournal drops everything except genre selections and the
// image quota notice. Used when the player picks a new genre so stale
// narrative does not carry into the next adventure.
func (gs *GameState) RetainSelectionJournal() {
	kept := make([]JournalEntry, 0, len(gs.Journal))
	for _, e := range gs.Journal {
		if e.Type == JournalGenreSelected || (e.Type == JournalSystem && e.Content == ImageQuotaNotice) {
			kept = append(kept, e)
		}
	}
	gs.Journal = kept
}
