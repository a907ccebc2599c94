package server

import (
	"encoding/json"
	"net/http"
	"time"
)

// AdminHandler 管理与监控接口，持有 RoomManager 句柄
type AdminHandler struct {
	manager *RoomManager
}

func NewAdminHandler(manager *RoomManager) *AdminHandler {
	return &AdminHandler{manager: manager}
}

// HandleConfig 提供运行期配置的读取与更新（热更新基本规则）
// GET  /admin/config?room=ABC123  返回当前配置
// POST /admin/config?room=ABC123  以 JSON 载荷更新部分字段
func (a *AdminHandler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	type cfg struct {
		MaxInputAgeMs *int64 `json:"maxInputAgeMs,omitempty"`
		MaxInactiveMs *int64 `json:"maxInactiveMs,omitempty"`
	}

	code := r.URL.Query().Get("room")
	var loop *GameLoop
	if code != "" {
		room := a.manager.GetRoomByCode(code)
		if room == nil {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}
		loop = a.manager.GetLoop(room.ID)
	}

	switch r.Method {
	case http.MethodGet:
		inactive := a.manager.MaxInactive().Milliseconds()
		cur := cfg{MaxInactiveMs: &inactive}
		if loop != nil {
			age := loop.MaxInputAge()
			cur.MaxInputAgeMs = &age
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(cur)
	case http.MethodPost:
		var body cfg
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if body.MaxInactiveMs != nil {
			a.manager.SetMaxInactive(time.Duration(*body.MaxInactiveMs) * time.Millisecond)
		}
		if body.MaxInputAgeMs != nil && loop != nil {
			loop.SetMaxInputAge(*body.MaxInputAgeMs)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
		Log.Infof("config updated: room=%s", code)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleRooms 输出房间统计与列表
// GET /admin/rooms
func (a *AdminHandler) HandleRooms(w http.ResponseWriter, r *http.Request) {
	rooms := a.manager.Rooms()
	list := make([]map[string]any, 0, len(rooms))
	for _, room := range rooms {
		list = append(list, map[string]any{
			"id":      room.ID,
			"code":    room.Code,
			"state":   room.State,
			"players": len(room.Players),
			"chapter": room.ChapterID,
		})
	}
	payload := map[string]any{
		"stats": a.manager.Stats(),
		"rooms": list,
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

// HandleMetrics 输出指定房间的运行指标
// GET /metrics?room=ABC123
func (a *AdminHandler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("room")
	room := a.manager.GetRoomByCode(code)
	if room == nil {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}
	loop := a.manager.GetLoop(room.ID)
	payload := map[string]any{
		"room":    code,
		"tick":    loop.CurrentTick(),
		"metrics": loop.Metrics().Snapshot(),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
