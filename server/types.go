package server

// AnimationState 玩家动画状态（由服务端权威推导，客户端仅播放）
type AnimationState string

const (
	AnimIdle      AnimationState = "idle"
	AnimWalking   AnimationState = "walking"
	AnimRunning   AnimationState = "running"
	AnimJumping   AnimationState = "jumping"
	AnimFalling   AnimationState = "falling"
	AnimAttacking AnimationState = "attacking"
	AnimDashing   AnimationState = "dashing"
)

// QuestState 任务状态
type QuestState string

const (
	QuestNotStarted QuestState = "not_started"
	QuestInProgress QuestState = "in_progress"
	QuestCompleted  QuestState = "completed"
	QuestFailed     QuestState = "failed"
)

// ItemType 道具类型
type ItemType string

const (
	ItemHealthPack  ItemType = "health_pack"
	ItemJumpBoots   ItemType = "jump_boots"
	ItemClueScanner ItemType = "clue_scanner"
	ItemPortKey     ItemType = "port_key"
)

// InputState 客户端意图：十个相互独立的布尔标志
type InputState struct {
	Forward  bool `json:"forward"`
	Backward bool `json:"backward"`
	Left     bool `json:"left"`
	Right    bool `json:"right"`
	Jump     bool `json:"jump"`
	Run      bool `json:"run"`
	Dash     bool `json:"dash"`
	Attack   bool `json:"attack"`
	Interact bool `json:"interact"`
	UseItem  bool `json:"useItem"`
}

// InputSnapshot 一帧输入，带序列号用于去重与重放检测；只被消费一次
type InputSnapshot struct {
	Sequence  int64      `json:"sequence"`
	PlayerID  string     `json:"playerId"`
	Input     InputState `json:"input"`
	Timestamp int64      `json:"timestamp"` // 毫秒时间戳
}

// InventoryItem 背包道具；同类型堆叠为一条，Quantity >= 1
type InventoryItem struct {
	ID          string         `json:"id"`
	Type        ItemType       `json:"type"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Quantity    int            `json:"quantity"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// PlayerState 房间内单个玩家的权威状态，由该房间的 GameLoop 独占修改
type PlayerState struct {
	ID                string          `json:"id"`
	UserID            string          `json:"userId"`
	Username          string          `json:"username"`
	Position          Vector3         `json:"position"`
	Velocity          Vector3         `json:"velocity"`
	Rotation          Quaternion      `json:"rotation"`
	Health            float64         `json:"health"`
	MaxHealth         float64         `json:"maxHealth"`
	AnimationState    AnimationState  `json:"animationState"`
	Inventory         []InventoryItem `json:"inventory"`
	XP                int             `json:"xp"`
	Level             int             `json:"level"`
	LastInputSequence int64           `json:"lastInputSequence"`
	LastServerTick    int64           `json:"lastServerTick"`
}

// GameEntity 场景实体（敌人、NPC、可交互物）
type GameEntity struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Position Vector3        `json:"position"`
	Rotation Quaternion     `json:"rotation"`
	Health   *float64       `json:"health,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// QuestProgress 任务进度；线索与目标只增不减
type QuestProgress struct {
	ID                  string     `json:"id"`
	State               QuestState `json:"state"`
	CluesFound          []string   `json:"cluesFound"`
	Objectives          []string   `json:"objectives"`
	CompletedObjectives []string   `json:"completedObjectives"`
	StartTime           int64      `json:"startTime"`
	LastUpdateTime      int64      `json:"lastUpdateTime"`
}

// GameSnapshot 一个 Tick 的完整世界快照，创建后不再修改，是广播给客户端的唯一权威表示
type GameSnapshot struct {
	Tick       int64           `json:"tick"`
	Timestamp  int64           `json:"timestamp"`
	Players    []PlayerState   `json:"players"`
	Entities   []GameEntity    `json:"entities"`
	Quests     []QuestProgress `json:"quests"`
	WorldState map[string]any  `json:"worldState"`
}

// RoomState 房间生命周期状态
type RoomState string

const (
	RoomWaiting   RoomState = "waiting"
	RoomPlaying   RoomState = "playing"
	RoomCompleted RoomState = "completed"
)

// GameRoom 房间会话：玩家名单镜像 GameLoop 中的列表
type GameRoom struct {
	ID           string        `json:"id"`
	Code         string        `json:"code"`
	HostID       string        `json:"hostId"`
	Players      []PlayerState `json:"players"`
	MaxPlayers   int           `json:"maxPlayers"`
	ChapterID    string        `json:"chapterId"`
	State        RoomState     `json:"state"`
	CreatedAt    int64         `json:"createdAt"`
	LastActivity int64         `json:"lastActivity"`
}

// Chapter 章节元数据（出生点与目标供房间初始化使用）
type Chapter struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Description       string    `json:"description"`
	Biome             string    `json:"biome"`
	SpawnPoints       []Vector3 `json:"spawnPoints"`
	Objectives        []string  `json:"objectives"`
	MaxPlayers        int       `json:"maxPlayers"`
	EstimatedDuration int       `json:"estimatedDuration"` // 分钟
}
