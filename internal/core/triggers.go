package core

import "strings"

// CustomTriggerEmoji marks triggers that are not in the catalog.
const CustomTriggerEmoji = "⚡"

// Catalog is an ordered set of known triggers.
type Catalog []TriggerItem

// DefaultCatalog returns the built-in triggers.
func DefaultCatalog() Catalog {
	return Catalog{
		{ID: "company", Label: "компания", Emoji: "🍻"},
		{ID: "fatigue", Label: "усталость", Emoji: "😪"},
		{ID: "stress", Label: "стресс", Emoji: "😵‍💫"},
		{ID: "boredom", Label: "скука", Emoji: "😴"},
		{ID: "party", Label: "праздник", Emoji: "🎉"},
		{ID: "conflict", Label: "конфликт", Emoji: "⚔️"},
		{ID: "loneliness", Label: "одиночество", Emoji: "😐"},
		{ID: "anger", Label: "злость", Emoji: "😡"},
	}
}

// Find returns the catalog entry with the given id.
func (c Catalog) Find(id string) (TriggerItem, bool) {
	for _, t := range c {
		if t.ID == id {
			return t, true
		}
	}
	return TriggerItem{}, false
}

// Merge returns c with the items of extra added. An extra item whose id is
// already present replaces it in place.
func (c Catalog) Merge(extra []TriggerItem) Catalog {
	out := append(Catalog(nil), c...)
	for _, item := range extra {
		item.ID = strings.TrimSpace(item.ID)
		if item.ID == "" {
			continue
		}
		if item.Label == "" {
			item.Label = item.ID
		}
		replaced := false
		for i := range out {
			if out[i].ID == item.ID {
				out[i] = item
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, item)
		}
	}
	return out
}

// TriggerLabels resolves selected catalog ids to labels, in catalog order,
// followed by free-text triggers.
func TriggerLabels(c Catalog, selected []string, custom []string) []string {
	chosen := make(map[string]struct{}, len(selected))
	for _, id := range selected {
		chosen[id] = struct{}{}
	}
	labels := make([]string, 0, len(selected)+len(custom))
	for _, t := range c {
		if _, ok := chosen[t.ID]; ok {
			labels = append(labels, t.Label)
		}
	}
	for _, text := range custom {
		if text = strings.TrimSpace(text); text != "" {
			labels = append(labels, text)
		}
	}
	return labels
}
