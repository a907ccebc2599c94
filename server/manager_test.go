package server

import (
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"
)

var codePattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)

func newTestManager() *RoomManager {
	return NewRoomManager()
}

func TestCreateRoomDefaults(t *testing.T) {
	m := newTestManager()
	room := m.CreateRoom("host-1", "alice", "neon-docks", 8)

	if !codePattern.MatchString(room.Code) {
		t.Fatalf("code %q not 6 uppercase alphanumerics", room.Code)
	}
	if room.State != RoomWaiting {
		t.Fatalf("state = %q, want waiting", room.State)
	}
	if room.HostID != "host-1" {
		t.Fatalf("hostId = %q, want host-1", room.HostID)
	}
	if m.GetRoomByCode(room.Code) != room {
		t.Fatalf("room not resolvable by code")
	}

	// 已知章节会播种任务与脚本化敌人
	loop := m.GetLoop(room.ID)
	if quests := loop.Quests(); len(quests) != 1 || quests[0].ID != "neon-docks" {
		t.Fatalf("quests = %+v, want chapter quest", quests)
	}
}

func TestRoomCodesNeverCollideWhileLive(t *testing.T) {
	m := newTestManager()
	seen := make(map[string]bool, 10000)
	for i := 0; i < 10000; i++ {
		room := m.CreateRoom("h", "host", "unknown-chapter", 8)
		if !codePattern.MatchString(room.Code) {
			t.Fatalf("room %d: bad code %q", i, room.Code)
		}
		if seen[room.Code] {
			t.Fatalf("room %d: duplicate live code %q", i, room.Code)
		}
		seen[room.Code] = true
	}
}

func TestJoinUnknownCodeReturnsNil(t *testing.T) {
	m := newTestManager()
	if room := m.JoinRoom("NOPE42", "p1", "alice"); room != nil {
		t.Fatalf("joined nonexistent room: %+v", room)
	}
}

func TestJoinFullRoomRejectedAndUnchanged(t *testing.T) {
	m := newTestManager()
	room := m.CreateRoom("h", "host", "c", 2)
	m.JoinRoom(room.Code, "p1", "alice")
	m.JoinRoom(room.Code, "p2", "bob")
	defer m.EndGame(room.ID)

	// 满两人已自动开局，第三人先被 full 还是 not-waiting 拒绝都一样：成员不变
	if got := m.JoinRoom(room.Code, "p3", "carol"); got != nil {
		t.Fatalf("joined full room")
	}
	if len(m.GetRoom(room.ID).Players) != 2 {
		t.Fatalf("membership changed: %d players", len(m.GetRoom(room.ID).Players))
	}
}

// 单人上限的房间不会自动开局，第三种拒绝路径（满员且仍在等待）由此覆盖
func TestJoinFullRoomRejectedWhileStillWaiting(t *testing.T) {
	m := newTestManager()
	room := m.CreateRoom("h", "host", "c", 1)
	m.JoinRoom(room.Code, "p1", "alice")

	if got := m.JoinRoom(room.Code, "p2", "bob"); got != nil {
		t.Fatalf("joined full room")
	}
	got := m.GetRoom(room.ID)
	if got.State != RoomWaiting {
		t.Fatalf("state = %q, want waiting", got.State)
	}
	if len(got.Players) != 1 || got.Players[0].ID != "p1" {
		t.Fatalf("membership changed: %+v", got.Players)
	}
}

// 并发加入时名单与状态只经锁内副本读取（配合 -race 运行）
func TestConcurrentJoinsReadSnapshotCopies(t *testing.T) {
	m := newTestManager()
	room := m.CreateRoom("h", "host", "c", 8)
	defer m.EndGame(room.ID)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("p%d", i)
			m.JoinRoom(room.Code, id, id)
			_ = m.RoomPlayers(room.ID)
			_ = m.RoomState(room.ID)
			_ = m.RoomHost(room.ID)
		}(i)
	}
	wg.Wait()

	// 第二人落座即自动开局，其余加入会被 not-waiting 拒绝：至少两人成功
	if got := len(m.RoomPlayers(room.ID)); got < 2 {
		t.Fatalf("players = %d, want at least 2", got)
	}
}

func TestJoinIsIdempotent(t *testing.T) {
	m := newTestManager()
	room := m.CreateRoom("h", "host", "c", 8)

	first := m.JoinRoom(room.Code, "p1", "alice")
	again := m.JoinRoom(room.Code, "p1", "alice")
	if again != first {
		t.Fatalf("repeat join returned different room")
	}
	if len(again.Players) != 1 {
		t.Fatalf("duplicate player entry: %d players", len(again.Players))
	}
}

func TestJoinRejectedWhenNotWaiting(t *testing.T) {
	m := newTestManager()
	room := m.CreateRoom("h", "host", "c", 8)
	m.JoinRoom(room.Code, "p1", "alice")
	m.JoinRoom(room.Code, "p2", "bob") // 自动开局
	defer m.EndGame(room.ID)

	if m.GetRoom(room.ID).State != RoomPlaying {
		t.Fatalf("state = %q, want playing after second join", m.GetRoom(room.ID).State)
	}
	if got := m.JoinRoom(room.Code, "p3", "carol"); got != nil {
		t.Fatalf("joined playing room")
	}
}

func TestStartGameNeedsTwoPlayers(t *testing.T) {
	m := newTestManager()
	room := m.CreateRoom("h", "host", "c", 8)
	m.JoinRoom(room.Code, "p1", "alice")

	if m.StartGame(room.ID) {
		t.Fatalf("started with one player")
	}
	if m.GetRoom(room.ID).State != RoomWaiting {
		t.Fatalf("state = %q, want waiting after rejected start", m.GetRoom(room.ID).State)
	}
}

func TestHostTransferOnLeave(t *testing.T) {
	m := newTestManager()
	room := m.CreateRoom("p1", "alice", "c", 8)
	m.JoinRoom(room.Code, "p1", "alice")
	m.JoinRoom(room.Code, "p2", "bob")
	m.JoinRoom(room.Code, "p3", "carol")
	defer m.EndGame(room.ID)

	m.LeaveRoom(room.ID, "p1")
	got := m.GetRoom(room.ID)
	if got == nil {
		t.Fatalf("room torn down with players remaining")
	}
	if got.HostID != "p2" {
		t.Fatalf("hostId = %q, want p2 (first remaining)", got.HostID)
	}
}

func TestLastPlayerLeavingTearsDownRoom(t *testing.T) {
	m := newTestManager()
	room := m.CreateRoom("p1", "alice", "c", 8)
	code := room.Code
	m.JoinRoom(code, "p1", "alice")

	m.LeaveRoom(room.ID, "p1")
	if m.GetRoom(room.ID) != nil {
		t.Fatalf("room still queryable after last player left")
	}
	if m.GetRoomByCode(code) != nil {
		t.Fatalf("code still mapped after teardown")
	}

	// 房间码被释放，可被后续房间复用
	if _, exists := m.roomCodes[code]; exists {
		t.Fatalf("code %q not freed", code)
	}
}

func TestEndGameIsTerminalButQueryable(t *testing.T) {
	m := newTestManager()
	room := m.CreateRoom("p1", "alice", "c", 8)
	m.JoinRoom(room.Code, "p1", "alice")
	m.JoinRoom(room.Code, "p2", "bob")

	m.EndGame(room.ID)
	got := m.GetRoom(room.ID)
	if got == nil || got.State != RoomCompleted {
		t.Fatalf("room = %+v, want queryable completed room", got)
	}
	if m.GetLoop(room.ID).IsRunning() {
		t.Fatalf("loop still running after end")
	}
	if m.StartGame(room.ID) {
		t.Fatalf("restarted completed room")
	}
}

func TestCleanupInactiveRooms(t *testing.T) {
	m := newTestManager()
	stale := m.CreateRoom("h1", "alice", "c", 8)
	fresh := m.CreateRoom("h2", "bob", "c", 8)

	m.GetRoom(stale.ID).LastActivity = nowMs() - time.Hour.Milliseconds()

	if n := m.CleanupInactiveRooms(30 * time.Minute); n != 1 {
		t.Fatalf("cleaned %d rooms, want 1", n)
	}
	if m.GetRoom(stale.ID) != nil {
		t.Fatalf("stale room survived cleanup")
	}
	if m.GetRoom(fresh.ID) == nil {
		t.Fatalf("fresh room removed by cleanup")
	}
}

func TestQueueInputUnknownRoomIsNoOp(t *testing.T) {
	m := newTestManager()
	m.QueueInput("missing", InputSnapshot{Sequence: 1, PlayerID: "p1", Timestamp: nowMs()})
}

func TestStatsCountsByState(t *testing.T) {
	m := newTestManager()
	r1 := m.CreateRoom("h1", "alice", "c", 8)
	r2 := m.CreateRoom("h2", "bob", "c", 8)
	m.JoinRoom(r2.Code, "p1", "carol")
	m.JoinRoom(r2.Code, "p2", "dave")
	defer m.EndGame(r2.ID)

	stats := m.Stats()
	if stats["totalRooms"] != 2 {
		t.Fatalf("totalRooms = %d, want 2", stats["totalRooms"])
	}
	if stats["waitingRooms"] != 1 || stats["playingRooms"] != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if stats["totalPlayers"] != 2 {
		t.Fatalf("totalPlayers = %d, want 2", stats["totalPlayers"])
	}
	_ = r1
}
