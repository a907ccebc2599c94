package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Envelope 统一的消息信封；Data 在边界处按 Type 解析成强类型结构
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// 入站消息载荷（边界处校验，畸形载荷在入队前被拒绝）
type createRoomMsg struct {
	Username  string `json:"username"`
	ChapterID string `json:"chapterId"`
}

type joinRoomMsg struct {
	RoomCode string `json:"roomCode"`
	Username string `json:"username"`
}

type chatMsg struct {
	Message string `json:"message"`
}

type useItemMsg struct {
	ItemType string `json:"itemType"`
}

type interactMsg struct {
	TargetID string `json:"targetId"`
	Action   string `json:"action"`
}

// ClientConn 负责发送（写）数据到客户端的轻量包装
type ClientConn struct {
	ws   *websocket.Conn
	send chan []byte
	once sync.Once
}

func NewClientConn(ws *websocket.Conn) *ClientConn {
	return &ClientConn{
		ws:   ws,
		send: make(chan []byte, 64),
	}
}

// Enqueue 将要发送的消息压入队列（非阻塞，满则丢弃）
func (c *ClientConn) Enqueue(b []byte) {
	select {
	case c.send <- b:
	default:
		// 为了实时性丢弃，慢消费者不能拖住 Tick
	}
}

// Emit 编码并入队一条事件消息
func (c *ClientConn) Emit(event string, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		return
	}
	b, err := json.Marshal(Envelope{Type: event, Data: raw})
	if err != nil {
		return
	}
	c.Enqueue(b)
}

// Close 关闭底层连接与发送队列
func (c *ClientConn) Close() {
	c.once.Do(func() { close(c.send) })
	_ = c.ws.Close()
}

// writePump 独立协程，负责从 send 队列写出到 WS
func (c *ClientConn) writePump() {
	defer c.ws.Close()
	for msg := range c.send {
		_ = c.ws.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// WSHandler 传输适配器：维护连接与房间的映射，把入站事件翻译成 RoomManager 调用，
// 把快照与生命周期事件投递给房间内的连接
type WSHandler struct {
	manager *RoomManager

	mu          sync.RWMutex
	conns       map[string]*ClientConn // playerId -> conn
	playerRooms map[string]string      // playerId -> roomId
}

// NewWSHandler 创建传输适配器并向管理器注册事件转发
func NewWSHandler(manager *RoomManager) *WSHandler {
	h := &WSHandler{
		manager:     manager,
		conns:       make(map[string]*ClientConn),
		playerRooms: make(map[string]string),
	}
	manager.OnEvent(h.broadcastToRoom)
	return h
}

// broadcastToRoom 把核心发出的事件扇出给房间内的全部连接（发不进去就丢）
func (h *WSHandler) broadcastToRoom(roomID, event string, data any) {
	players := h.manager.RoomPlayers(roomID)
	if players == nil {
		return
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return
	}
	b, err := json.Marshal(Envelope{Type: event, Data: raw})
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, p := range players {
		if c, ok := h.conns[p.ID]; ok {
			c.Enqueue(b)
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 演示环境：允许所有来源（生产环境需严格限制）
		return true
	},
}

// HandleWS WebSocket 接入：每个连接对应一个玩家，playerId 由服务端分配
func (h *WSHandler) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		Log.Warnf("upgrade error: %v", err)
		return
	}

	playerID := uuid.NewString()
	client := NewClientConn(ws)

	h.mu.Lock()
	h.conns[playerID] = client
	h.mu.Unlock()

	go client.writePump()

	client.Emit("connected", map[string]any{
		"playerId":  playerID,
		"timestamp": nowMs(),
	})

	go h.readPump(client, playerID)
}

// readPump 读取客户端消息并分发；连接断开视为离开房间
func (h *WSHandler) readPump(c *ClientConn, playerID string) {
	defer func() {
		h.handleLeaveRoom(c, playerID)
		h.mu.Lock()
		delete(h.conns, playerID)
		h.mu.Unlock()
		c.Close()
	}()

	c.ws.SetReadLimit(1 << 20) // 1MB
	_ = c.ws.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(60 * time.Second))
	})

	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		var env Envelope
		if err := json.Unmarshal(payload, &env); err != nil {
			c.Emit("error", map[string]any{"message": "malformed payload"})
			continue
		}
		h.dispatch(c, playerID, env)
	}
}

func (h *WSHandler) dispatch(c *ClientConn, playerID string, env Envelope) {
	switch env.Type {
	case "create_room":
		var msg createRoomMsg
		if err := json.Unmarshal(env.Data, &msg); err != nil || msg.Username == "" || msg.ChapterID == "" {
			c.Emit("error", map[string]any{"message": "username and chapter id are required"})
			return
		}
		h.handleCreateRoom(c, playerID, msg)
	case "join_room":
		var msg joinRoomMsg
		if err := json.Unmarshal(env.Data, &msg); err != nil || msg.RoomCode == "" || msg.Username == "" {
			c.Emit("error", map[string]any{"message": "room code and username are required"})
			return
		}
		h.handleJoinRoom(c, playerID, msg)
	case "leave_room":
		h.handleLeaveRoom(c, playerID)
	case "player_input":
		var in InputSnapshot
		if err := json.Unmarshal(env.Data, &in); err != nil || in.PlayerID == "" {
			c.Emit("error", map[string]any{"message": "invalid input data"})
			return
		}
		h.handlePlayerInput(c, playerID, in)
	case "chat_message":
		var msg chatMsg
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			c.Emit("error", map[string]any{"message": "malformed payload"})
			return
		}
		h.handleChat(c, playerID, msg)
	case "use_item":
		var msg useItemMsg
		if err := json.Unmarshal(env.Data, &msg); err != nil || msg.ItemType == "" {
			c.Emit("error", map[string]any{"message": "malformed payload"})
			return
		}
		h.handleUseItem(c, playerID, msg)
	case "interact":
		var msg interactMsg
		if err := json.Unmarshal(env.Data, &msg); err != nil || msg.TargetID == "" {
			c.Emit("error", map[string]any{"message": "malformed payload"})
			return
		}
		h.handleInteract(c, playerID, msg)
	case "start_game":
		h.handleStartGame(c, playerID)
	case "end_game":
		h.handleEndGame(c, playerID)
	default:
		c.Emit("error", map[string]any{"message": "unknown message type"})
	}
}

func (h *WSHandler) roomOf(playerID string) string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.playerRooms[playerID]
}

func (h *WSHandler) handleCreateRoom(c *ClientConn, playerID string, msg createRoomMsg) {
	room := h.manager.CreateRoom(playerID, msg.Username, msg.ChapterID, MaxPlayersPerRoom)

	// 房主随后以同一房间码 join_room 成为第一名玩家
	h.mu.Lock()
	h.playerRooms[playerID] = room.ID
	h.mu.Unlock()

	// 名单走锁内副本，避免与并发加入的 append 竞争
	c.Emit("room_created", map[string]any{
		"roomId":   room.ID,
		"roomCode": room.Code,
		"hostId":   h.manager.RoomHost(room.ID),
		"players":  summarizePlayers(h.manager.RoomPlayers(room.ID)),
	})
}

func (h *WSHandler) handleJoinRoom(c *ClientConn, playerID string, msg joinRoomMsg) {
	room := h.manager.JoinRoom(msg.RoomCode, playerID, msg.Username)
	if room == nil {
		c.Emit("error", map[string]any{"message": "failed to join room"})
		return
	}

	h.mu.Lock()
	h.playerRooms[playerID] = room.ID
	h.mu.Unlock()

	c.Emit("room_joined", map[string]any{
		"roomId":   room.ID,
		"roomCode": room.Code,
		"players":  summarizePlayers(h.manager.RoomPlayers(room.ID)),
		"state":    h.manager.RoomState(room.ID),
	})
}

func (h *WSHandler) handleLeaveRoom(c *ClientConn, playerID string) {
	h.mu.Lock()
	roomID, ok := h.playerRooms[playerID]
	delete(h.playerRooms, playerID)
	h.mu.Unlock()
	if !ok {
		return
	}

	h.manager.LeaveRoom(roomID, playerID)
	c.Emit("room_left", map[string]any{"roomId": roomID})
}

func (h *WSHandler) handlePlayerInput(c *ClientConn, playerID string, in InputSnapshot) {
	roomID := h.roomOf(playerID)
	if roomID == "" {
		c.Emit("error", map[string]any{"message": "not in a room"})
		return
	}
	// 玩家只能为自己提交输入
	if in.PlayerID != playerID {
		c.Emit("error", map[string]any{"message": "player id mismatch"})
		return
	}

	h.manager.QueueInput(roomID, in)
	c.Emit("input_received", map[string]any{
		"sequence":  in.Sequence,
		"timestamp": nowMs(),
	})
}

func (h *WSHandler) handleChat(c *ClientConn, playerID string, msg chatMsg) {
	roomID := h.roomOf(playerID)
	if roomID == "" {
		c.Emit("error", map[string]any{"message": "not in a room"})
		return
	}
	text := strings.TrimSpace(msg.Message)
	if text == "" {
		c.Emit("error", map[string]any{"message": "message cannot be empty"})
		return
	}
	if len(text) > 200 {
		c.Emit("error", map[string]any{"message": "message too long"})
		return
	}

	username := ""
	for _, p := range h.manager.RoomPlayers(roomID) {
		if p.ID == playerID {
			username = p.Username
			break
		}
	}

	h.broadcastToRoom(roomID, "chat_message", map[string]any{
		"playerId":  playerID,
		"username":  username,
		"message":   text,
		"timestamp": nowMs(),
	})
}

func (h *WSHandler) handleUseItem(c *ClientConn, playerID string, msg useItemMsg) {
	roomID := h.roomOf(playerID)
	if roomID == "" {
		c.Emit("error", map[string]any{"message": "not in a room"})
		return
	}
	loop := h.manager.GetLoop(roomID)
	if loop == nil {
		return
	}
	ok := loop.UseItem(playerID, ItemType(msg.ItemType))
	c.Emit("item_used", map[string]any{
		"itemType":  msg.ItemType,
		"success":   ok,
		"timestamp": nowMs(),
	})
}

// handleInteract 交互：目标实体存在且在近战距离内才算成功
func (h *WSHandler) handleInteract(c *ClientConn, playerID string, msg interactMsg) {
	roomID := h.roomOf(playerID)
	if roomID == "" {
		c.Emit("error", map[string]any{"message": "not in a room"})
		return
	}
	loop := h.manager.GetLoop(roomID)
	if loop == nil {
		return
	}

	success := false
	if player, ok := loop.GetPlayer(playerID); ok {
		if target, ok := loop.GetEntity(msg.TargetID); ok {
			success = CheckMeleeHit(player, target, 2.0)
		}
	}
	if success {
		loop.GrantXP(playerID, 10)
	}
	c.Emit("interaction_completed", map[string]any{
		"targetId":  msg.TargetID,
		"action":    msg.Action,
		"success":   success,
		"timestamp": nowMs(),
	})
}

func (h *WSHandler) handleStartGame(c *ClientConn, playerID string) {
	roomID := h.roomOf(playerID)
	if roomID == "" {
		c.Emit("error", map[string]any{"message": "not in a room"})
		return
	}
	// 仅房主可以开局
	if h.manager.RoomHost(roomID) != playerID {
		c.Emit("error", map[string]any{"message": "only the host can start the game"})
		return
	}
	h.manager.StartGame(roomID)
}

func (h *WSHandler) handleEndGame(c *ClientConn, playerID string) {
	roomID := h.roomOf(playerID)
	if roomID == "" {
		c.Emit("error", map[string]any{"message": "not in a room"})
		return
	}
	if h.manager.RoomHost(roomID) != playerID {
		c.Emit("error", map[string]any{"message": "only the host can end the game"})
		return
	}
	h.manager.EndGame(roomID)
}
