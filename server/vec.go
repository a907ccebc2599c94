package server

import "math"

// Vector3 三维向量，用于位置与速度
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Quaternion 四元数，用于朝向
type Quaternion struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// Vec3 构造三维向量
func Vec3(x, y, z float64) Vector3 {
	return Vector3{X: x, Y: y, Z: z}
}

// Add 向量相加
func (v Vector3) Add(o Vector3) Vector3 {
	return Vector3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// Sub 向量相减
func (v Vector3) Sub(o Vector3) Vector3 {
	return Vector3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

// Scale 向量数乘
func (v Vector3) Scale(s float64) Vector3 {
	return Vector3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// Magnitude 向量模长
func (v Vector3) Magnitude() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Normalize 归一化；零向量返回零向量
func (v Vector3) Normalize() Vector3 {
	mag := v.Magnitude()
	if mag == 0 {
		return Vector3{}
	}
	return v.Scale(1 / mag)
}

// Distance 两点间距离
func Distance(a, b Vector3) float64 {
	return a.Sub(b).Magnitude()
}

// Quat 构造四元数
func Quat(x, y, z, w float64) Quaternion {
	return Quaternion{X: x, Y: y, Z: z, W: w}
}

// IdentityQuaternion 单位朝向
func IdentityQuaternion() Quaternion {
	return Quaternion{W: 1}
}

// QuaternionFromEuler 欧拉角（弧度）转四元数
func QuaternionFromEuler(x, y, z float64) Quaternion {
	cx, sx := math.Cos(x*0.5), math.Sin(x*0.5)
	cy, sy := math.Cos(y*0.5), math.Sin(y*0.5)
	cz, sz := math.Cos(z*0.5), math.Sin(z*0.5)
	return Quaternion{
		X: sx*cy*cz - cx*sy*sz,
		Y: cx*sy*cz + sx*cy*sz,
		Z: cx*cy*sz - sx*sy*cz,
		W: cx*cy*cz + sx*sy*sz,
	}
}

// LerpQuaternion 分量线性插值；不做重归一化，结果可能不是单位四元数
func LerpQuaternion(a, b Quaternion, t float64) Quaternion {
	return Quaternion{
		X: a.X + (b.X-a.X)*t,
		Y: a.Y + (b.Y-a.Y)*t,
		Z: a.Z + (b.Z-a.Z)*t,
		W: a.W + (b.W-a.W)*t,
	}
}

// NormalizeQuaternion 归一化；需要单位四元数的调用方自行调用
func NormalizeQuaternion(q Quaternion) Quaternion {
	mag := math.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)
	if mag == 0 {
		return IdentityQuaternion()
	}
	return Quaternion{X: q.X / mag, Y: q.Y / mag, Z: q.Z / mag, W: q.W / mag}
}

// ApplyGravity 对速度施加重力（gravity 向下为负）
func ApplyGravity(velocity Vector3, gravity, deltaTime float64) Vector3 {
	velocity.Y += gravity * deltaTime
	return velocity
}

// ApplyFriction 按摩擦系数衰减速度（friction 取 0~1）
func ApplyFriction(velocity Vector3, friction, deltaTime float64) Vector3 {
	return velocity.Scale(math.Pow(friction, deltaTime))
}

// CheckAABBCollision 轴对齐包围盒相交测试
func CheckAABBCollision(pos1, size1, pos2, size2 Vector3) bool {
	return pos1.X < pos2.X+size2.X && pos1.X+size1.X > pos2.X &&
		pos1.Y < pos2.Y+size2.Y && pos1.Y+size1.Y > pos2.Y &&
		pos1.Z < pos2.Z+size2.Z && pos1.Z+size1.Z > pos2.Z
}

// RaySphereIntersection 射线与球求交；返回最近正向距离，不相交返回 (0, false)
func RaySphereIntersection(rayOrigin, rayDirection, sphereCenter Vector3, sphereRadius float64) (float64, bool) {
	oc := rayOrigin.Sub(sphereCenter)
	a := rayDirection.X*rayDirection.X + rayDirection.Y*rayDirection.Y + rayDirection.Z*rayDirection.Z
	b := 2 * (oc.X*rayDirection.X + oc.Y*rayDirection.Y + oc.Z*rayDirection.Z)
	c := oc.X*oc.X + oc.Y*oc.Y + oc.Z*oc.Z - sphereRadius*sphereRadius

	discriminant := b*b - 4*a*c
	if discriminant < 0 {
		return 0, false
	}

	sq := math.Sqrt(discriminant)
	if t1 := (-b - sq) / (2 * a); t1 > 0 {
		return t1, true
	}
	if t2 := (-b + sq) / (2 * a); t2 > 0 {
		return t2, true
	}
	return 0, false
}

// CalculateDamage 按距离衰减计算伤害：超出射程为 0，衰减起点内为全额
func CalculateDamage(baseDamage, distance, maxRange, falloffStart float64) float64 {
	if distance > maxRange {
		return 0
	}
	if distance <= falloffStart {
		return baseDamage
	}
	falloffRange := maxRange - falloffStart
	falloffFactor := 1 - (distance-falloffStart)/falloffRange
	return baseDamage * falloffFactor
}
