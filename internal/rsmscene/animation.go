package rsmscene

import (
	"github.com/Faultbox/midgard-ply/pkg/formats"
	"github.com/Faultbox/midgard-ply/pkg/math"
)

// bracket finds the keyframes around t (in milliseconds, keys sorted by
// frame) and the blend factor between them. Before the first key or after
// the last one the nearest key is held.
func bracket[K any](keys []K, frame func(K) int32, t float32) (a, b K, f float32) {
	prev, next := 0, 0
	for i, k := range keys {
		if float32(frame(k)) > t {
			next = i
			break
		}
		prev, next = i, i
	}
	a, b = keys[prev], keys[next]
	if prev == next {
		return a, b, 0
	}
	if span := frame(b) - frame(a); span != 0 {
		f = (t - float32(frame(a))) / float32(span)
	}
	return a, b, f
}

// RotationAt returns the node rotation at t, slerping between keys.
func RotationAt(keys []formats.RSMRotKey, t float32) math.Quat {
	if len(keys) == 0 {
		return math.QuatIdentity()
	}
	a, b, f := bracket(keys, func(k formats.RSMRotKey) int32 { return k.Frame }, t)
	qa, qb := math.QuatFromArray(a.Quaternion), math.QuatFromArray(b.Quaternion)
	if f == 0 {
		return qa
	}
	return qa.Slerp(qb, f)
}

// ScaleAt returns the keyframed scale at t, or (1,1,1) without keys.
func ScaleAt(keys []formats.RSMScaleKey, t float32) math.Vec3 {
	if len(keys) == 0 {
		return math.Vec3{X: 1, Y: 1, Z: 1}
	}
	a, b, f := bracket(keys, func(k formats.RSMScaleKey) int32 { return k.Frame }, t)
	return math.V3(a.Scale).Lerp(math.V3(b.Scale), f)
}

// PositionAt returns the keyframed position at t. ok is false without keys.
func PositionAt(keys []formats.RSMPosKey, t float32) (p math.Vec3, ok bool) {
	if len(keys) == 0 {
		return math.Vec3{}, false
	}
	a, b, f := bracket(keys, func(k formats.RSMPosKey) int32 { return k.Frame }, t)
	return math.V3(a.Position).Lerp(math.V3(b.Position), f), true
}
