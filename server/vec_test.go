package server

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestVectorArithmetic(t *testing.T) {
	a := Vec3(1, 2, 3)
	b := Vec3(-1, 0.5, 2)

	if got := a.Add(b); got != Vec3(0, 2.5, 5) {
		t.Fatalf("add = %+v", got)
	}
	if got := a.Sub(b); got != Vec3(2, 1.5, 1) {
		t.Fatalf("sub = %+v", got)
	}
	if got := a.Scale(2); got != Vec3(2, 4, 6) {
		t.Fatalf("scale = %+v", got)
	}
	if got := Vec3(3, 4, 0).Magnitude(); !almostEqual(got, 5) {
		t.Fatalf("magnitude = %v", got)
	}
	if got := Distance(Vec3(1, 0, 0), Vec3(4, 4, 0)); !almostEqual(got, 5) {
		t.Fatalf("distance = %v", got)
	}
}

func TestNormalizeZeroVector(t *testing.T) {
	if got := (Vector3{}).Normalize(); got != (Vector3{}) {
		t.Fatalf("normalized zero vector = %+v", got)
	}
	n := Vec3(0, 0, -7).Normalize()
	if !almostEqual(n.Magnitude(), 1) || n.Z >= 0 {
		t.Fatalf("normalize = %+v", n)
	}
}

func TestQuaternionFromEulerYaw(t *testing.T) {
	// 绕 Y 轴转 90 度
	q := QuaternionFromEuler(0, math.Pi/2, 0)
	if !almostEqual(q.Y, math.Sin(math.Pi/4)) || !almostEqual(q.W, math.Cos(math.Pi/4)) {
		t.Fatalf("yaw quaternion = %+v", q)
	}
	if !almostEqual(q.X, 0) || !almostEqual(q.Z, 0) {
		t.Fatalf("yaw quaternion has off-axis components: %+v", q)
	}
}

// 线性插值端点精确，中间值不保证单位长度（刻意保留的简化）
func TestLerpQuaternionEndpointsAndDrift(t *testing.T) {
	a := IdentityQuaternion()
	b := QuaternionFromEuler(0, math.Pi, 0)

	if got := LerpQuaternion(a, b, 0); got != a {
		t.Fatalf("lerp t=0 = %+v", got)
	}
	end := LerpQuaternion(a, b, 1)
	if !almostEqual(end.X, b.X) || !almostEqual(end.Y, b.Y) || !almostEqual(end.Z, b.Z) || !almostEqual(end.W, b.W) {
		t.Fatalf("lerp t=1 = %+v, want %+v", end, b)
	}

	mid := LerpQuaternion(a, b, 0.5)
	mag := math.Sqrt(mid.X*mid.X + mid.Y*mid.Y + mid.Z*mid.Z + mid.W*mid.W)
	if almostEqual(mag, 1) {
		t.Fatalf("expected non-unit midpoint, magnitude = %v", mag)
	}

	renorm := NormalizeQuaternion(mid)
	mag = math.Sqrt(renorm.X*renorm.X + renorm.Y*renorm.Y + renorm.Z*renorm.Z + renorm.W*renorm.W)
	if !almostEqual(mag, 1) {
		t.Fatalf("normalized magnitude = %v", mag)
	}
}

func TestAABBCollision(t *testing.T) {
	size := Vec3(1, 1, 1)
	if !CheckAABBCollision(Vec3(0, 0, 0), size, Vec3(0.5, 0.5, 0.5), size) {
		t.Fatalf("overlapping boxes reported apart")
	}
	if CheckAABBCollision(Vec3(0, 0, 0), size, Vec3(2, 0, 0), size) {
		t.Fatalf("disjoint boxes reported colliding")
	}
}

func TestRaySphereIntersection(t *testing.T) {
	origin := Vec3(0, 0, 0)
	dir := Vec3(0, 0, -1)

	dist, hit := RaySphereIntersection(origin, dir, Vec3(0, 0, -10), 1)
	if !hit || !almostEqual(dist, 9) {
		t.Fatalf("hit = %v dist = %v, want hit at 9", hit, dist)
	}

	// 球在射线反方向
	if _, hit := RaySphereIntersection(origin, dir, Vec3(0, 0, 10), 1); hit {
		t.Fatalf("hit sphere behind ray")
	}
	if _, hit := RaySphereIntersection(origin, dir, Vec3(5, 0, -10), 1); hit {
		t.Fatalf("hit sphere off axis")
	}
}

func TestCalculateDamageFalloff(t *testing.T) {
	if got := CalculateDamage(40, 2, 20, 5); got != 40 {
		t.Fatalf("within falloffStart: %v, want full damage", got)
	}
	if got := CalculateDamage(40, 25, 20, 5); got != 0 {
		t.Fatalf("beyond maxRange: %v, want 0", got)
	}
	// 衰减区中点减半
	if got := CalculateDamage(40, 12.5, 20, 5); !almostEqual(got, 20) {
		t.Fatalf("midpoint damage = %v, want 20", got)
	}
}

func TestApplyFrictionDecays(t *testing.T) {
	v := Vec3(10, 0, -10)
	damped := ApplyFriction(v, 0.5, 1)
	if !almostEqual(damped.X, 5) || !almostEqual(damped.Z, -5) {
		t.Fatalf("friction result = %+v", damped)
	}
	// dt=0 不衰减
	if got := ApplyFriction(v, 0.5, 0); got != v {
		t.Fatalf("zero-dt friction changed velocity: %+v", got)
	}
}

func TestCheckRangedHit(t *testing.T) {
	origin := Vec3(0, 0, 0)
	dir := Vec3(0, 0, -1)
	target := GameEntity{ID: "e1", Position: Vec3(0, 0, -5)}

	if !CheckRangedHit(origin, dir, target, 10) {
		t.Fatalf("straight-on shot missed")
	}
	if CheckRangedHit(origin, dir, target, 3) {
		t.Fatalf("hit beyond max range")
	}
	wide := GameEntity{ID: "e2", Position: Vec3(5, 0, -5)}
	if CheckRangedHit(origin, dir, wide, 10) {
		t.Fatalf("hit target far outside aim cone")
	}
}

func TestApplyGravityHelper(t *testing.T) {
	v := ApplyGravity(Vec3(1, 0, 1), Gravity, 1)
	if !almostEqual(v.Y, Gravity) || v.X != 1 || v.Z != 1 {
		t.Fatalf("gravity result = %+v", v)
	}
}
