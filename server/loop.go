package server

import (
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// GameLoop 单个房间的权威世界：状态维护在内存，由固定频率的 Tick 单线程推进。
// 输入经由带缓冲通道跨线程注入（多生产者），仅在 Tick 中被消费；
// 管理侧的玩家/实体/任务增删走同一把互斥锁，房间未开局时也能安全加入
type GameLoop struct {
	roomID string

	mu       sync.Mutex
	players  []PlayerState
	entities []GameEntity
	quests   []QuestProgress

	inputChan      chan InputSnapshot
	lastInputs     map[string]InputSnapshot // playerId -> 最近被接受的输入
	lastInputTimes map[string]int64         // playerId -> 最近接受时刻（毫秒）

	tick         int64
	lastTickTime time.Time

	running  bool
	stopChan chan struct{}

	onSnapshot func(GameSnapshot)

	maxInputAgeMs atomic.Int64 // 可经 /admin/config 热更新

	metrics *LoopMetrics
}

// NewGameLoop 创建循环，初始为 stopped
func NewGameLoop(roomID string) *GameLoop {
	l := &GameLoop{
		roomID:         roomID,
		inputChan:      make(chan InputSnapshot, 256), // 足够缓冲，避免网络读阻塞影响 Tick
		lastInputs:     make(map[string]InputSnapshot),
		lastInputTimes: make(map[string]int64),
		metrics:        &LoopMetrics{},
	}
	l.maxInputAgeMs.Store(MaxInputAgeMs)
	return l
}

// OnSnapshot 注册快照回调；回调在 Tick 协程内被调用，不得阻塞
func (l *GameLoop) OnSnapshot(cb func(GameSnapshot)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onSnapshot = cb
}

// Start 启动 Tick 循环；重复调用无效果
func (l *GameLoop) Start() {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return
	}
	l.running = true
	l.lastTickTime = time.Now()
	l.stopChan = make(chan struct{})
	stop := l.stopChan
	l.mu.Unlock()

	go func() {
		ticker := time.NewTicker(tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				// 核心循环：处理输入 → 更新世界 → 广播快照
				start := time.Now()
				l.stepOnce(start)
				l.metrics.AddTick(time.Since(start).Nanoseconds())
			}
		}
	}()
	Log.Infof("game loop started: room=%s rate=%dHz", l.roomID, TickRate)
}

// Stop 停止后续 Tick；进行中的 Tick 不被打断
func (l *GameLoop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running {
		return
	}
	l.running = false
	close(l.stopChan)
	Log.Infof("game loop stopped: room=%s tick=%d", l.roomID, l.tick)
}

// IsRunning 循环是否在运行
func (l *GameLoop) IsRunning() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// QueueInput 入站输入（不立即生效），等下一次 Tick 处理。
// 不阻塞：通道满时丢弃，保证 Tick 准时
func (l *GameLoop) QueueInput(in InputSnapshot) {
	select {
	case l.inputChan <- in:
	default:
		l.metrics.IncChanFullDiscarded()
	}
}

// stepOnce 推进一个 Tick。deltaTime 取真实流逝的墙钟时间（容忍调度抖动）
func (l *GameLoop) stepOnce(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	deltaTime := now.Sub(l.lastTickTime).Seconds()
	if l.lastTickTime.IsZero() || deltaTime <= 0 {
		deltaTime = tickInterval.Seconds()
	}

	l.processInputs(deltaTime)
	l.updateWorld(deltaTime)

	snapshot := l.buildSnapshot()
	if l.onSnapshot != nil {
		l.onSnapshot(snapshot)
	}

	l.tick++
	l.lastTickTime = now
}

// processInputs 排空输入队列，逐条校验、限流并作用到对应玩家
func (l *GameLoop) processInputs(deltaTime float64) {
	for {
		select {
		case in := <-l.inputChan:
			l.applyOne(in, deltaTime)
		default:
			return
		}
	}
}

func (l *GameLoop) applyOne(in InputSnapshot, deltaTime float64) {
	var last *InputSnapshot
	if prev, ok := l.lastInputs[in.PlayerID]; ok {
		last = &prev
	}
	if valid, reason := ValidateInput(in, last, l.maxInputAgeMs.Load()); !valid {
		switch reason {
		case ReasonInputTooOld:
			l.metrics.IncStale()
		case ReasonInvalidSequence:
			l.metrics.IncOldSeq()
		default:
			l.metrics.IncImplausible()
		}
		return
	}

	// 独立于序列校验的限流：两次被接受的输入至少间隔一个 Tick
	nowMilli := nowMs()
	if lastTime, ok := l.lastInputTimes[in.PlayerID]; ok {
		if float64(nowMilli-lastTime) < MinInputIntervalMs {
			l.metrics.IncRateLimited()
			return
		}
	}

	idx := l.playerIndex(in.PlayerID)
	if idx == -1 {
		// 玩家已离开：静默忽略
		l.metrics.IncUnknownPlayer()
		return
	}

	p := ApplyPlayerInput(l.players[idx], in.Input, deltaTime)
	p.LastInputSequence = in.Sequence
	p.LastServerTick = l.tick
	l.players[idx] = p

	l.lastInputs[in.PlayerID] = in
	l.lastInputTimes[in.PlayerID] = nowMilli
	l.metrics.IncAccepted()
}

// updateWorld 世界级物理：离地玩家单独再积分一次重力（与输入内的重力彼此独立），
// 以及 enemy 实体的占位正弦运动
func (l *GameLoop) updateWorld(deltaTime float64) {
	for i := range l.players {
		p := &l.players[i]
		if p.Position.Y <= GroundY {
			continue
		}
		p.Velocity.Y += Gravity * deltaTime
		p.Position.Y += p.Velocity.Y * deltaTime
		if p.Position.Y < GroundY {
			p.Position.Y = GroundY
			p.Velocity.Y = 0
		}
	}

	for i := range l.entities {
		e := &l.entities[i]
		if e.Type != "enemy" {
			continue
		}
		e.Position.X += math.Sin(float64(l.tick)*0.1) * 0.1
		e.Position.Z += math.Cos(float64(l.tick)*0.1) * 0.1
	}
}

// buildSnapshot 以当前世界构造不可变快照（列表为副本）
func (l *GameLoop) buildSnapshot() GameSnapshot {
	return GameSnapshot{
		Tick:       l.tick,
		Timestamp:  nowMs(),
		Players:    append([]PlayerState{}, l.players...),
		Entities:   append([]GameEntity{}, l.entities...),
		Quests:     append([]QuestProgress{}, l.quests...),
		WorldState: map[string]any{},
	}
}

func (l *GameLoop) playerIndex(playerID string) int {
	for i := range l.players {
		if l.players[i].ID == playerID {
			return i
		}
	}
	return -1
}

// AddPlayer 将玩家加入世界
func (l *GameLoop) AddPlayer(p PlayerState) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.players = append(l.players, p)
	Log.Infof("player added: room=%s player=%s", l.roomID, p.Username)
}

// RemovePlayer 将玩家移出世界并清除其输入记录
func (l *GameLoop) RemovePlayer(playerID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	idx := l.playerIndex(playerID)
	if idx == -1 {
		return
	}
	username := l.players[idx].Username
	l.players = append(l.players[:idx], l.players[idx+1:]...)
	delete(l.lastInputs, playerID)
	delete(l.lastInputTimes, playerID)
	Log.Infof("player removed: room=%s player=%s", l.roomID, username)
}

// GetPlayer 按 ID 取玩家当前状态
func (l *GameLoop) GetPlayer(playerID string) (PlayerState, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	idx := l.playerIndex(playerID)
	if idx == -1 {
		return PlayerState{}, false
	}
	return l.players[idx], true
}

// Players 返回玩家列表副本
func (l *GameLoop) Players() []PlayerState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]PlayerState{}, l.players...)
}

// AddEntity 加入场景实体
func (l *GameLoop) AddEntity(e GameEntity) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entities = append(l.entities, e)
}

// RemoveEntity 移除场景实体
func (l *GameLoop) RemoveEntity(entityID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.entities {
		if l.entities[i].ID == entityID {
			l.entities = append(l.entities[:i], l.entities[i+1:]...)
			return
		}
	}
}

// GetEntity 按 ID 取实体
func (l *GameLoop) GetEntity(entityID string) (GameEntity, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.entities {
		if l.entities[i].ID == entityID {
			return l.entities[i], true
		}
	}
	return GameEntity{}, false
}

// AddQuest 加入任务
func (l *GameLoop) AddQuest(q QuestProgress) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.quests = append(l.quests, q)
}

// AddClue 向任务记录线索（幂等）
func (l *GameLoop) AddClue(questID, clueID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.quests {
		if l.quests[i].ID == questID {
			l.quests[i] = AddClueToQuest(l.quests[i], clueID)
			return
		}
	}
}

// CompleteObjective 完成任务目标（幂等）
func (l *GameLoop) CompleteObjective(questID, objectiveID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.quests {
		if l.quests[i].ID == questID {
			l.quests[i] = CompleteQuestObjective(l.quests[i], objectiveID)
			return
		}
	}
}

// Quests 返回任务列表副本
func (l *GameLoop) Quests() []QuestProgress {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]QuestProgress{}, l.quests...)
}

// UseItem 消耗玩家的一个道具；玩家不存在或无道具时返回 false
func (l *GameLoop) UseItem(playerID string, itemType ItemType) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	idx := l.playerIndex(playerID)
	if idx == -1 {
		return false
	}
	p, ok := UseInventoryItem(l.players[idx], itemType)
	if !ok {
		return false
	}
	l.players[idx] = p
	return true
}

// GiveItem 向玩家背包发放道具
func (l *GameLoop) GiveItem(playerID string, item InventoryItem) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	idx := l.playerIndex(playerID)
	if idx == -1 {
		return false
	}
	l.players[idx] = AddItemToInventory(l.players[idx], item)
	return true
}

// GrantXP 给玩家加经验
func (l *GameLoop) GrantXP(playerID string, xp int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	idx := l.playerIndex(playerID)
	if idx == -1 {
		return
	}
	l.players[idx] = AddExperience(l.players[idx], xp)
}

// CurrentTick 当前 Tick 序号
func (l *GameLoop) CurrentTick() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tick
}

// Metrics 本循环的运行指标
func (l *GameLoop) Metrics() *LoopMetrics {
	return l.metrics
}

// SetMaxInputAge 热更新输入过期阈值（毫秒）
func (l *GameLoop) SetMaxInputAge(ms int64) {
	l.maxInputAgeMs.Store(ms)
}

// MaxInputAge 当前输入过期阈值（毫秒）
func (l *GameLoop) MaxInputAge() int64 {
	return l.maxInputAgeMs.Load()
}
