package server

import "time"

// 模拟常量：与客户端预测共享的权威数值
const (
	// Gravity 重力加速度（向下为负）
	Gravity = -9.8
	// JumpForce 起跳时赋予的竖直速度
	JumpForce = 8.0
	// MoveSpeed 步行基准速度
	MoveSpeed = 5.0
	// RunMultiplier 奔跑时的速度倍率
	RunMultiplier = 1.5
	// DashForce 冲刺附加的水平速度
	DashForce = 15.0
	// DashDuration 冲刺持续秒数（客户端表现用）
	DashDuration = 0.2
	// MaxHealth 玩家满血值
	MaxHealth = 100
	// GroundY 地面高度
	GroundY = 0.0
	// TickRate 世界推进频率（60 TPS）
	TickRate = 60
	// MaxPlayersPerRoom 单房间人数上限
	MaxPlayersPerRoom = 8
	// RejoinWindow 断线重连窗口
	RejoinWindow = 30 * time.Second
)

// PlayerSize 玩家包围盒尺寸
var PlayerSize = Vector3{X: 0.5, Y: 1.8, Z: 0.5}

// 输入校验常量
const (
	// MaxInputAgeMs 超过该毫秒数的输入视为过期
	MaxInputAgeMs = 1000
	// MaxInputDistance 亚秒间隔内方向标志"距离"的合理上限（粗粒度反作弊）
	MaxInputDistance = 10.0
	// MinInputIntervalMs 同一玩家两次输入的最小间隔（按 Tick 频率限流）
	MinInputIntervalMs = 1000.0 / TickRate
)

// 房间清理常量
const (
	// DefaultMaxInactive 房间无活动超过该时长将被清理
	DefaultMaxInactive = 30 * time.Minute
	// CleanupSweepInterval 清理巡检周期
	CleanupSweepInterval = time.Minute
)

var tickInterval = time.Second / TickRate
