package state

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// InventoryItem is an item owned by the player. ID is derived from the name.
type InventoryItem struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ItemID derives the deterministic inventory key for an item name:
// accents are folded, letters lowercased, and runs of anything else
// collapsed into a single hyphen.
func ItemID(name string) string {
	folded, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		name,
	)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}

// HasItem reports whether an item with the given id is in the inventory.
func (gs *GameState) HasItem(id string) bool {
	for _, item := range gs.Inventory {
		if item.ID == id {
			return true
		}
	}
	return false
}

// AddItem appends a new item keyed by its slug. It returns false without
// changing the inventory when the id is already present or the name
// produces an empty id.
func (gs *GameState) AddItem(name, description string) (InventoryItem, bool) {
	item := InventoryItem{
		ID:          ItemID(name),
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
	}
	if item.ID == "" || gs.HasItem(item.ID) {
		return item, false
	}
	gs.Inventory = append(gs.Inventory, item)
	return item, true
}
