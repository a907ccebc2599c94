package server

import "sync/atomic"

// LoopMetrics 记录单个房间循环的运行指标（用于监控与调试）
type LoopMetrics struct {
	TickCount          int64 // 统计的 Tick 次数
	InputsAccepted     int64 // 被接受的输入数
	StaleDropped       int64 // 因过期被丢弃的输入数
	OldSeqIgnored      int64 // 因序列回退被忽略的输入数
	ImplausibleDropped int64 // 因移动不合理被丢弃的输入数
	RateLimited        int64 // 因限流被拒绝的输入数
	UnknownPlayer      int64 // 指向不存在玩家的输入数（静默忽略）
	ChanFullDiscarded  int64 // 因通道满被丢弃的输入数
	TotalTickNs        int64 // Tick 累计耗时（纳秒）
}

func (m *LoopMetrics) IncAccepted()          { atomic.AddInt64(&m.InputsAccepted, 1) }
func (m *LoopMetrics) IncStale()             { atomic.AddInt64(&m.StaleDropped, 1) }
func (m *LoopMetrics) IncOldSeq()            { atomic.AddInt64(&m.OldSeqIgnored, 1) }
func (m *LoopMetrics) IncImplausible()       { atomic.AddInt64(&m.ImplausibleDropped, 1) }
func (m *LoopMetrics) IncRateLimited()       { atomic.AddInt64(&m.RateLimited, 1) }
func (m *LoopMetrics) IncUnknownPlayer()     { atomic.AddInt64(&m.UnknownPlayer, 1) }
func (m *LoopMetrics) IncChanFullDiscarded() { atomic.AddInt64(&m.ChanFullDiscarded, 1) }
func (m *LoopMetrics) AddTick(ns int64) {
	atomic.AddInt64(&m.TickCount, 1)
	atomic.AddInt64(&m.TotalTickNs, ns)
}

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *LoopMetrics) Snapshot() map[string]any {
	tick := atomic.LoadInt64(&m.TickCount)
	total := atomic.LoadInt64(&m.TotalTickNs)
	var avgMs float64
	if tick > 0 {
		avgMs = float64(total) / float64(tick) / 1e6
	}
	return map[string]any{
		"tick_count":          tick,
		"inputs_accepted":     atomic.LoadInt64(&m.InputsAccepted),
		"stale_dropped":       atomic.LoadInt64(&m.StaleDropped),
		"old_seq_ignored":     atomic.LoadInt64(&m.OldSeqIgnored),
		"implausible_dropped": atomic.LoadInt64(&m.ImplausibleDropped),
		"rate_limited":        atomic.LoadInt64(&m.RateLimited),
		"unknown_player":      atomic.LoadInt64(&m.UnknownPlayer),
		"chan_full_discarded": atomic.LoadInt64(&m.ChanFullDiscarded),
		"avg_tick_ms":         avgMs,
	}
}
