package models

// ItemType categorizes an item and decides which slot it can occupy
type ItemType string

const (
	ItemTypeWeapon     ItemType = "weapon"
	ItemTypeArmor      ItemType = "armor"
	ItemTypeHead       ItemType = "head"
	ItemTypeAccessory  ItemType = "accessory"
	ItemTypeConsumable ItemType = "consumable"
	ItemTypeCosmetic   ItemType = "cosmetic"
	ItemTypeMaterial   ItemType = "material"
)

// Rarity is the drop tier of an item
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityUncommon  Rarity = "uncommon"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// Slot is a named equipment location on a student
type Slot string

const (
	SlotHead       Slot = "head"
	SlotBody       Slot = "body"
	SlotHands      Slot = "hands"
	SlotFeet       Slot = "feet"
	SlotWeapon     Slot = "weapon"
	SlotAccessory1 Slot = "accessory1"
	SlotAccessory2 Slot = "accessory2"
)

// EffectType is the kind of timed effect a consumable grants
type EffectType string

const (
	EffectBuff      EffectType = "buff"
	EffectHeal      EffectType = "heal"
	EffectXPBoost   EffectType = "xp_boost"
	EffectStatBoost EffectType = "stat_boost"
)

// ItemEffect is a timed effect; Duration is in seconds
type ItemEffect struct {
	Type     EffectType `json:"type"`
	Value    int        `json:"value"`
	Duration int        `json:"duration,omitempty"`
}

// Item is a catalog definition. Students hold InventoryEntry references to it.
type Item struct {
	ID                string       `json:"id"`
	Name              string       `json:"name"`
	Description       string       `json:"description"`
	Type              ItemType     `json:"type"`
	Rarity            Rarity       `json:"rarity"`
	Icon              string       `json:"icon"`
	IndigenousName    string       `json:"indigenousName,omitempty"`
	IndigenousMeaning string       `json:"indigenousMeaning,omitempty"`
	Stats             *Stats       `json:"stats,omitempty"`
	Effects           []ItemEffect `json:"effects,omitempty"`
	LevelRequirement  int          `json:"levelRequirement,omitempty"`
	Tradable          bool         `json:"tradable"`
	MaxStack          int          `json:"maxStack"`
}

// InventoryView joins an inventory entry with its item definition
type InventoryView struct {
	InventoryEntry
	Item Item `json:"item"`
}
