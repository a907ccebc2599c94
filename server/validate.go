package server

import "math"

// 校验失败原因
const (
	ReasonInputTooOld     = "input too old"
	ReasonInvalidSequence = "invalid sequence number"
	ReasonMovementTooFast = "movement too fast"
)

// ValidateInput 输入校验：过期、序列回退、亚秒间隔内的不合理移动。
// 这些都是粗粒度过滤信号而非鉴权，未通过的输入被静默丢弃
func ValidateInput(input InputSnapshot, lastInput *InputSnapshot, maxAgeMs int64) (bool, string) {
	now := nowMs()

	if now-input.Timestamp > maxAgeMs {
		return false, ReasonInputTooOld
	}

	if lastInput != nil && input.Sequence <= lastInput.Sequence {
		return false, ReasonInvalidSequence
	}

	// 方向标志"距离"的启发式检查，只看亚秒间隔
	if lastInput != nil {
		timeDiff := float64(input.Timestamp-lastInput.Timestamp) / 1000
		if timeDiff > 0 && timeDiff < 1 {
			distance := math.Sqrt(
				boolSq(input.Input.Forward) +
					boolSq(input.Input.Backward) +
					boolSq(input.Input.Left) +
					boolSq(input.Input.Right))
			if distance > MaxInputDistance {
				return false, ReasonMovementTooFast
			}
		}
	}

	return true, ""
}

func boolSq(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
