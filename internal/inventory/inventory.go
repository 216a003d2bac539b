// Package inventory manages the items a student owns and which equip slot
// each one occupies.
package inventory

import (
	"errors"
	"time"

	"naturequest/internal/models"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrLevelTooLow     = errors.New("student level is below the item requirement")
)

var slotByType = map[models.ItemType]models.Slot{
	models.ItemTypeWeapon:    models.SlotWeapon,
	models.ItemTypeHead:      models.SlotHead,
	models.ItemTypeArmor:     models.SlotBody,
	models.ItemTypeAccessory: models.SlotAccessory1,
}

// SlotFor returns the equip slot for an item type. Consumables, cosmetics
// and materials have none.
func SlotFor(t models.ItemType) (models.Slot, bool) {
	slot, ok := slotByType[t]
	return slot, ok
}

// GiveItem adds quantity of item to the student. An existing stack grows,
// capped at the item's MaxStack when one is set.
func GiveItem(student models.Student, item models.Item, quantity int, now time.Time) (models.Student, error) {
	if quantity < 1 {
		return student, ErrInvalidQuantity
	}

	out := student.Clone()
	if i := out.FindItem(item.ID); i >= 0 {
		out.Inventory[i].Quantity = capStack(out.Inventory[i].Quantity+quantity, item.MaxStack)
		return out, nil
	}

	out.Inventory = append(out.Inventory, models.InventoryEntry{
		ItemID:     item.ID,
		Quantity:   capStack(quantity, item.MaxStack),
		AcquiredAt: now,
		Equipped:   false,
	})
	return out, nil
}

func capStack(quantity, maxStack int) int {
	if maxStack > 0 && quantity > maxStack {
		return maxStack
	}
	return quantity
}

// EquipItem places item in its slot. Items without a slot, or not owned by
// the student, leave the student unchanged. Whatever occupied the slot before
// loses its equipped flag.
func EquipItem(student models.Student, item models.Item) (models.Student, error) {
	slot, ok := SlotFor(item.Type)
	if !ok {
		return student, nil
	}
	idx := student.FindItem(item.ID)
	if idx < 0 {
		return student, nil
	}
	if item.LevelRequirement > 0 && student.Level < item.LevelRequirement {
		return student, ErrLevelTooLow
	}

	out := student.Clone()
	if previous, taken := out.EquippedItems[slot]; taken && previous != item.ID {
		if p := out.FindItem(previous); p >= 0 {
			out.Inventory[p].Equipped = false
		}
	}

	out.Inventory[idx].Equipped = true
	out.EquippedItems[slot] = item.ID
	return out, nil
}

// UnequipItem frees whichever slot holds itemID. No-op when it is not equipped.
func UnequipItem(student models.Student, itemID string) models.Student {
	var slot models.Slot
	found := false
	for s, id := range student.EquippedItems {
		if id == itemID {
			slot, found = s, true
			break
		}
	}
	if !found {
		return student
	}

	out := student.Clone()
	delete(out.EquippedItems, slot)
	if i := out.FindItem(itemID); i >= 0 {
		out.Inventory[i].Equipped = false
	}
	return out
}

// Views joins the student's entries with their item definitions. Entries
// whose definition is missing are skipped.
func Views(student models.Student, lookup func(id string) (models.Item, bool)) []models.InventoryView {
	views := make([]models.InventoryView, 0, len(student.Inventory))
	for _, entry := range student.Inventory {
		item, ok := lookup(entry.ItemID)
		if !ok {
			continue
		}
		views = append(views, models.InventoryView{InventoryEntry: entry, Item: item})
	}
	return views
}

// EffectiveStats adds the bonuses of every equipped item to the base stats
func EffectiveStats(student models.Student, lookup func(id string) (models.Item, bool)) models.Stats {
	total := student.Stats
	for _, itemID := range student.EquippedItems {
		item, ok := lookup(itemID)
		if !ok || item.Stats == nil {
			continue
		}
		total.Strength += item.Stats.Strength
		total.Intelligence += item.Stats.Intelligence
		total.Wisdom += item.Stats.Wisdom
		total.Dexterity += item.Stats.Dexterity
		total.Constitution += item.Stats.Constitution
		total.Charisma += item.Stats.Charisma
	}
	return total
}
