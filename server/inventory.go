package server

import "math"

// AddItemToInventory 加入道具；同类型堆叠数量，否则追加新条目
func AddItemToInventory(player PlayerState, item InventoryItem) PlayerState {
	inventory := append([]InventoryItem{}, player.Inventory...)
	for i := range inventory {
		if inventory[i].Type == item.Type {
			inventory[i].Quantity += item.Quantity
			player.Inventory = inventory
			return player
		}
	}
	player.Inventory = append(inventory, item)
	return player
}

// UseInventoryItem 消耗一个道具并应用效果；没有该道具时返回原状态与 false
func UseInventoryItem(player PlayerState, itemType ItemType) (PlayerState, bool) {
	idx := -1
	for i, it := range player.Inventory {
		if it.Type == itemType {
			idx = i
			break
		}
	}
	if idx == -1 || player.Inventory[idx].Quantity <= 0 {
		return player, false
	}

	switch itemType {
	case ItemHealthPack:
		player.Health = math.Min(player.MaxHealth, player.Health+25)
	case ItemJumpBoots:
		// 跳跃增益在物理更新中生效
	}

	inventory := append([]InventoryItem{}, player.Inventory...)
	if inventory[idx].Quantity == 1 {
		inventory = append(inventory[:idx], inventory[idx+1:]...)
	} else {
		inventory[idx].Quantity--
	}
	player.Inventory = inventory
	return player, true
}

// AddExperience 增加经验并重算等级：level = floor(xp/100)+1
func AddExperience(player PlayerState, xp int) PlayerState {
	player.XP += xp
	player.Level = player.XP/100 + 1
	return player
}
