package server

import (
	"crypto/rand"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// durationValue 可原子热更新的时长
type durationValue struct{ v atomic.Int64 }

func (d *durationValue) Store(val time.Duration) { d.v.Store(int64(val)) }
func (d *durationValue) Load() time.Duration     { return time.Duration(d.v.Load()) }

const roomCodeChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// EventFunc 生命周期事件回调：由传输层注册并负责投递给房间内的客户端
type EventFunc func(roomID, event string, data any)

// RoomManager 管理多个房间的生命周期：注册表、房间码、成员与状态流转。
// 显式实例而非单例，由进程启动时创建、关停时回收；
// 注册表操作（创建/加入/离开/清理）在同一把锁内串行，房间码查重跨全部房间
type RoomManager struct {
	mu        sync.RWMutex
	rooms     map[string]*GameRoom // roomId -> room
	loops     map[string]*GameLoop // roomId -> loop
	roomCodes map[string]string    // code -> roomId

	onEvent EventFunc

	maxInactive durationValue
}

// NewRoomManager 创建房间管理器
func NewRoomManager() *RoomManager {
	m := &RoomManager{
		rooms:     make(map[string]*GameRoom),
		loops:     make(map[string]*GameLoop),
		roomCodes: make(map[string]string),
	}
	m.maxInactive.Store(DefaultMaxInactive)
	return m
}

// OnEvent 注册生命周期事件回调（game_started / game_ended / player_joined 等）
func (m *RoomManager) OnEvent(fn EventFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onEvent = fn
}

func (m *RoomManager) emit(roomID, event string, data any) {
	m.mu.RLock()
	fn := m.onEvent
	m.mu.RUnlock()
	if fn != nil {
		fn(roomID, event, data)
	}
}

// CreateRoom 创建房间：分配 roomId 与唯一 6 位房间码，初始 waiting，
// 并为其实例化一个接好快照广播的 GameLoop
func (m *RoomManager) CreateRoom(hostID, hostUsername, chapterID string, maxPlayers int) *GameRoom {
	if maxPlayers <= 0 {
		maxPlayers = MaxPlayersPerRoom
	}

	m.mu.Lock()
	roomID := "room_" + uuid.NewString()
	code := m.generateRoomCodeLocked()

	now := nowMs()
	room := &GameRoom{
		ID:           roomID,
		Code:         code,
		HostID:       hostID,
		Players:      []PlayerState{},
		MaxPlayers:   maxPlayers,
		ChapterID:    chapterID,
		State:        RoomWaiting,
		CreatedAt:    now,
		LastActivity: now,
	}

	loop := NewGameLoop(roomID)
	loop.OnSnapshot(func(s GameSnapshot) {
		m.emit(roomID, "game_snapshot", s)
	})

	m.rooms[roomID] = room
	m.loops[roomID] = loop
	m.roomCodes[code] = roomID
	m.mu.Unlock()

	// 章节目标与脚本化敌人作为房间初始世界
	if chapter, ok := GetChapter(chapterID); ok {
		loop.AddQuest(StartQuest(chapterID, chapter.Objectives))
		loop.AddEntity(GameEntity{
			ID:       "enemy_" + uuid.NewString(),
			Type:     "enemy",
			Position: Vector3{X: 10, Y: 0, Z: 10},
			Rotation: IdentityQuaternion(),
		})
	}

	Log.Infof("room created: code=%s host=%s chapter=%s", code, hostUsername, chapterID)
	return room
}

// generateRoomCodeLocked 拒绝采样生成不与任何存活房间冲突的 6 位大写字母数字码。
// 调用方必须持有 m.mu
func (m *RoomManager) generateRoomCodeLocked() string {
	for {
		code := randomRoomCode()
		if _, exists := m.roomCodes[code]; !exists {
			return code
		}
	}
}

func randomRoomCode() string {
	b := make([]byte, 6)
	max := big.NewInt(int64(len(roomCodeChars)))
	for i := range b {
		idx, _ := rand.Int(rand.Reader, max)
		b[i] = roomCodeChars[idx.Int64()]
	}
	return string(b)
}

// JoinRoom 按房间码加入：码不存在、房间已满或非 waiting 状态时返回 nil；
// 已在房内则幂等返回。满两人且仍在等待时自动开局
func (m *RoomManager) JoinRoom(code, playerID, username string) *GameRoom {
	m.mu.Lock()
	roomID, ok := m.roomCodes[code]
	if !ok {
		m.mu.Unlock()
		Log.Infof("join rejected: code=%s not found", code)
		return nil
	}
	room := m.rooms[roomID]
	loop := m.loops[roomID]

	if len(room.Players) >= room.MaxPlayers {
		m.mu.Unlock()
		Log.Infof("join rejected: room=%s full", code)
		return nil
	}
	if room.State != RoomWaiting {
		m.mu.Unlock()
		Log.Infof("join rejected: room=%s not accepting players", code)
		return nil
	}
	for _, p := range room.Players {
		if p.ID == playerID {
			m.mu.Unlock()
			return room
		}
	}

	player := PlayerState{
		ID:             playerID,
		UserID:         playerID,
		Username:       username,
		Position:       spawnPointFor(room.ChapterID, len(room.Players)),
		Velocity:       Vector3{},
		Rotation:       IdentityQuaternion(),
		Health:         MaxHealth,
		MaxHealth:      MaxHealth,
		AnimationState: AnimIdle,
		Inventory:      []InventoryItem{},
		XP:             0,
		Level:          1,
	}
	room.Players = append(room.Players, player)
	room.LastActivity = nowMs()
	autoStart := len(room.Players) >= 2 && room.State == RoomWaiting
	m.mu.Unlock()

	loop.AddPlayer(player)
	Log.Infof("player joined: room=%s player=%s", code, username)
	m.emit(roomID, "player_joined", map[string]any{
		"playerId": playerID,
		"username": username,
	})

	if autoStart {
		m.StartGame(roomID)
	}
	return room
}

// LeaveRoom 移出玩家：房主离开则移交给剩余的第一位；空房直接整体回收
func (m *RoomManager) LeaveRoom(roomID, playerID string) {
	m.mu.Lock()
	room, ok := m.rooms[roomID]
	if !ok {
		m.mu.Unlock()
		return
	}
	idx := -1
	for i, p := range room.Players {
		if p.ID == playerID {
			idx = i
			break
		}
	}
	if idx == -1 {
		m.mu.Unlock()
		return
	}
	username := room.Players[idx].Username
	room.Players = append(room.Players[:idx], room.Players[idx+1:]...)
	room.LastActivity = nowMs()
	loop := m.loops[roomID]

	empty := len(room.Players) == 0
	hostTransferred := ""
	if !empty && room.HostID == playerID {
		room.HostID = room.Players[0].ID
		hostTransferred = room.Players[0].Username
	}
	m.mu.Unlock()

	loop.RemovePlayer(playerID)
	Log.Infof("player left: room=%s player=%s", room.Code, username)
	m.emit(roomID, "player_left", map[string]any{"playerId": playerID})

	if empty {
		m.removeRoom(roomID)
		return
	}
	if hostTransferred != "" {
		Log.Infof("host transferred: room=%s host=%s", room.Code, hostTransferred)
	}
}

// StartGame waiting → playing：人数不足或状态不对则拒绝并原样保留
func (m *RoomManager) StartGame(roomID string) bool {
	m.mu.Lock()
	room, ok := m.rooms[roomID]
	if !ok {
		m.mu.Unlock()
		return false
	}
	if room.State != RoomWaiting {
		m.mu.Unlock()
		Log.Infof("start rejected: room=%s already in game", room.Code)
		return false
	}
	if len(room.Players) < 2 {
		m.mu.Unlock()
		Log.Infof("start rejected: room=%s needs at least 2 players", room.Code)
		return false
	}
	room.State = RoomPlaying
	room.LastActivity = nowMs()
	loop := m.loops[roomID]
	players := summarizePlayers(room.Players)
	m.mu.Unlock()

	loop.Start()
	Log.Infof("game started: room=%s players=%d", room.Code, len(players))
	m.emit(roomID, "game_started", map[string]any{
		"roomId":  roomID,
		"players": players,
	})
	return true
}

// EndGame 任意状态 → completed：停止循环，completed 为终态，等待清理前仍可查询
func (m *RoomManager) EndGame(roomID string) {
	m.mu.Lock()
	room, ok := m.rooms[roomID]
	if !ok {
		m.mu.Unlock()
		return
	}
	room.State = RoomCompleted
	room.LastActivity = nowMs()
	loop := m.loops[roomID]
	results := make([]map[string]any, 0, len(room.Players))
	for _, p := range room.Players {
		results = append(results, map[string]any{"id": p.ID, "username": p.Username, "xp": p.XP})
	}
	m.mu.Unlock()

	loop.Stop()
	Log.Infof("game ended: room=%s", room.Code)
	m.emit(roomID, "game_ended", map[string]any{
		"roomId":  roomID,
		"results": map[string]any{"players": results},
	})
}

// QueueInput 把输入转交给房间的循环；房间不存在则静默丢弃
func (m *RoomManager) QueueInput(roomID string, in InputSnapshot) {
	m.mu.RLock()
	loop, ok := m.loops[roomID]
	m.mu.RUnlock()
	if !ok {
		return
	}
	loop.QueueInput(in)
}

// GetRoom 按 roomId 查询
func (m *RoomManager) GetRoom(roomID string) *GameRoom {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rooms[roomID]
}

// GetRoomByCode 按房间码查询
func (m *RoomManager) GetRoomByCode(code string) *GameRoom {
	m.mu.RLock()
	defer m.mu.RUnlock()
	roomID, ok := m.roomCodes[code]
	if !ok {
		return nil
	}
	return m.rooms[roomID]
}

// RoomHost 返回房间当前房主 ID；房间不存在返回空串
func (m *RoomManager) RoomHost(roomID string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	room, ok := m.rooms[roomID]
	if !ok {
		return ""
	}
	return room.HostID
}

// RoomState 返回房间当前状态；房间不存在返回空串
func (m *RoomManager) RoomState(roomID string) RoomState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	room, ok := m.rooms[roomID]
	if !ok {
		return ""
	}
	return room.State
}

// RoomPlayers 返回房间玩家名单的副本（注册表锁内读取）
func (m *RoomManager) RoomPlayers(roomID string) []PlayerState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	room, ok := m.rooms[roomID]
	if !ok {
		return nil
	}
	return append([]PlayerState{}, room.Players...)
}

// GetLoop 取房间对应的循环
func (m *RoomManager) GetLoop(roomID string) *GameLoop {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loops[roomID]
}

// Rooms 返回全部房间
func (m *RoomManager) Rooms() []*GameRoom {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*GameRoom, 0, len(m.rooms))
	for _, r := range m.rooms {
		out = append(out, r)
	}
	return out
}

// ActiveRooms 返回 waiting / playing 状态的房间
func (m *RoomManager) ActiveRooms() []*GameRoom {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*GameRoom, 0, len(m.rooms))
	for _, r := range m.rooms {
		if r.State == RoomWaiting || r.State == RoomPlaying {
			out = append(out, r)
		}
	}
	return out
}

// Stats 汇总房间统计
func (m *RoomManager) Stats() map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := map[string]int{
		"totalRooms":   len(m.rooms),
		"activeRooms":  0,
		"waitingRooms": 0,
		"playingRooms": 0,
		"totalPlayers": 0,
	}
	for _, r := range m.rooms {
		switch r.State {
		case RoomWaiting:
			stats["waitingRooms"]++
			stats["activeRooms"]++
		case RoomPlaying:
			stats["playingRooms"]++
			stats["activeRooms"]++
		}
		stats["totalPlayers"] += len(r.Players)
	}
	return stats
}

// removeRoom 整体回收：停循环、释放房间码与 roomId
func (m *RoomManager) removeRoom(roomID string) {
	m.mu.Lock()
	room, ok := m.rooms[roomID]
	if !ok {
		m.mu.Unlock()
		return
	}
	loop := m.loops[roomID]
	delete(m.roomCodes, room.Code)
	delete(m.rooms, roomID)
	delete(m.loops, roomID)
	m.mu.Unlock()

	if loop != nil {
		loop.Stop()
	}
	Log.Infof("room cleaned up: code=%s", room.Code)
}

// CleanupInactiveRooms 清理超过阈值无活动的房间（无论是否还有人，作为孤儿会话的兜底）。
// 返回清理数量
func (m *RoomManager) CleanupInactiveRooms(maxInactive time.Duration) int {
	cutoff := nowMs() - maxInactive.Milliseconds()

	m.mu.RLock()
	var stale []string
	for id, r := range m.rooms {
		if r.LastActivity < cutoff {
			stale = append(stale, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range stale {
		Log.Infof("cleaning up inactive room: id=%s", id)
		m.removeRoom(id)
	}
	if len(stale) > 0 {
		Log.Infof("cleaned up %d inactive rooms", len(stale))
	}
	return len(stale)
}

// StartCleanupSweep 周期清理巡检；返回停止函数
func (m *RoomManager) StartCleanupSweep(interval time.Duration) func() {
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				m.CleanupInactiveRooms(m.maxInactive.Load())
			}
		}
	}()
	return func() { close(stop) }
}

// SetMaxInactive 热更新清理阈值
func (m *RoomManager) SetMaxInactive(d time.Duration) {
	m.maxInactive.Store(d)
}

// MaxInactive 当前清理阈值
func (m *RoomManager) MaxInactive() time.Duration {
	return m.maxInactive.Load()
}

func summarizePlayers(players []PlayerState) []map[string]any {
	out := make([]map[string]any, 0, len(players))
	for _, p := range players {
		out = append(out, map[string]any{"id": p.ID, "username": p.Username})
	}
	return out
}
