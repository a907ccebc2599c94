package server

import "math"

// ApplyPlayerInput 把一帧输入作用到玩家状态上，返回新状态（纯函数，不修改入参）。
// 步骤顺序是契约的一部分，客户端重放/和解依赖同样的顺序：
// 重力 → 方向速度 → 跳跃 → 冲刺 → 位移积分 → 落地裁剪 → 动画终判
func ApplyPlayerInput(player PlayerState, input InputState, deltaTime float64) PlayerState {
	velocity := player.Velocity
	position := player.Position
	anim := player.AnimationState

	// 1. 重力进入竖直速度
	velocity.Y += Gravity * deltaTime

	// 2. 方向标志换算水平速度增量；标志可叠加，相反方向互相抵消
	moveSpeed := MoveSpeed
	if input.Run {
		moveSpeed = MoveSpeed * RunMultiplier
	}
	if input.Forward {
		velocity.Z -= moveSpeed
	}
	if input.Backward {
		velocity.Z += moveSpeed
	}
	if input.Left {
		velocity.X -= moveSpeed
	}
	if input.Right {
		velocity.X += moveSpeed
	}

	// 3. 跳跃：贴地（0.1 以内）才触发，空中按住无效
	if input.Jump && player.Position.Y <= GroundY+0.1 {
		velocity.Y = JumpForce
		anim = AnimJumping
	}

	// 4. 冲刺：沿归一化的移动方向叠加；在跳跃之后，可叠加到新鲜的起跳速度上
	if input.Dash {
		dir := normalizeMovementVector(input)
		velocity.X += dir.X * DashForce
		velocity.Z += dir.Z * DashForce
		anim = AnimDashing
	}

	// 5. 位移积分
	position.X += velocity.X * deltaTime
	position.Y += velocity.Y * deltaTime
	position.Z += velocity.Z * deltaTime

	// 6. 落地裁剪：按裁剪前的竖直速度区分坠落与站立
	if position.Y < GroundY {
		position.Y = GroundY
		velocity.Y = 0
		if player.Velocity.Y < -2 {
			anim = AnimFalling
		} else {
			anim = AnimIdle
		}
	}

	// 7. 动画终判：水平移动优先于竖直状态（可能覆盖第 3~6 步的结果）
	if math.Abs(velocity.X) > 0.1 || math.Abs(velocity.Z) > 0.1 {
		if input.Run {
			anim = AnimRunning
		} else {
			anim = AnimWalking
		}
	} else if position.Y <= GroundY+0.1 {
		anim = AnimIdle
	}

	player.Position = position
	player.Velocity = velocity
	player.AnimationState = anim
	return player
}

// normalizeMovementVector 由方向标志得到归一化的水平移动方向；无标志返回零向量
func normalizeMovementVector(input InputState) Vector3 {
	var x, z float64
	if input.Forward {
		z -= 1
	}
	if input.Backward {
		z += 1
	}
	if input.Left {
		x -= 1
	}
	if input.Right {
		x += 1
	}
	if x == 0 && z == 0 {
		return Vector3{}
	}
	length := math.Sqrt(x*x + z*z)
	return Vector3{X: x / length, Z: z / length}
}

// CheckMeleeHit 近战命中：距离落在攻击范围内
func CheckMeleeHit(attacker PlayerState, target GameEntity, attackRange float64) bool {
	return Distance(attacker.Position, target.Position) <= attackRange
}

// CheckRangedHit 远程命中：目标在射程内且落在朝向的窄锥内（约 17 度）
func CheckRangedHit(origin, direction Vector3, target GameEntity, maxRange float64) bool {
	distance := Distance(origin, target.Position)
	if distance > maxRange {
		return false
	}
	targetDirection := target.Position.Sub(origin)
	dot := direction.X*targetDirection.X + direction.Y*targetDirection.Y + direction.Z*targetDirection.Z
	angle := math.Acos(dot / (distance * direction.Magnitude()))
	return angle < 0.3
}

// ApplyDamage 对实体扣血，下限为 0；无血量实体原样返回
func ApplyDamage(target GameEntity, damage float64) GameEntity {
	if target.Health == nil {
		return target
	}
	h := math.Max(0, *target.Health-damage)
	target.Health = &h
	return target
}
