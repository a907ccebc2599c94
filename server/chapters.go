package server

// 内置章节目录：出生点按加入顺序轮转分配，目标用于初始化房间任务
var chapters = map[string]Chapter{
	"neon-docks": {
		ID:          "neon-docks",
		Name:        "Neon Docks",
		Description: "雨夜码头，追查失踪货轮的线索",
		Biome:       "urban",
		SpawnPoints: []Vector3{
			{X: 0, Y: 1, Z: 0},
			{X: 2, Y: 1, Z: 0},
			{X: -2, Y: 1, Z: 0},
			{X: 0, Y: 1, Z: 2},
		},
		Objectives:        []string{"find-manifest", "unlock-warehouse", "reach-pier-7"},
		MaxPlayers:        MaxPlayersPerRoom,
		EstimatedDuration: 20,
	},
	"forest-ladles": {
		ID:          "forest-ladles",
		Name:        "Forest of Ladles",
		Description: "雾林深处，寻回散落的银勺",
		Biome:       "forest",
		SpawnPoints: []Vector3{
			{X: 5, Y: 1, Z: 5},
			{X: 7, Y: 1, Z: 5},
			{X: 5, Y: 1, Z: 7},
		},
		Objectives:        []string{"collect-ladles", "light-beacons", "cross-ravine"},
		MaxPlayers:        MaxPlayersPerRoom,
		EstimatedDuration: 25,
	},
	"spooky-museum": {
		ID:          "spooky-museum",
		Name:        "Spooky Museum",
		Description: "闭馆后的博物馆，展品并不安分",
		Biome:       "indoor",
		SpawnPoints: []Vector3{
			{X: 0, Y: 1, Z: -10},
			{X: 1.5, Y: 1, Z: -10},
		},
		Objectives:        []string{"find-curator-notes", "restore-exhibit", "escape-gallery"},
		MaxPlayers:        MaxPlayersPerRoom,
		EstimatedDuration: 30,
	},
}

// GetChapter 按 ID 查章节
func GetChapter(id string) (Chapter, bool) {
	c, ok := chapters[id]
	return c, ok
}

// spawnPointFor 按玩家序号轮转取出生点；未知章节回退到默认出生点
func spawnPointFor(chapterID string, playerIndex int) Vector3 {
	c, ok := chapters[chapterID]
	if !ok || len(c.SpawnPoints) == 0 {
		return Vector3{X: 0, Y: 1, Z: 0}
	}
	return c.SpawnPoints[playerIndex%len(c.SpawnPoints)]
}
