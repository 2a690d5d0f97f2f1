package geom

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
)

func TestRotateYawQuarterTurn(t *testing.T) {
	rotated := RotateYaw(Forward, 90)
	assert.InDelta(t, 0, rotated.X(), 1e-9)
	assert.InDelta(t, 1, rotated.Y(), 1e-9)
	assert.InDelta(t, 0, rotated.Z(), 1e-9)
}

func TestNormalOfZeroVectorStaysZero(t *testing.T) {
	assert.Equal(t, mgl64.Vec3{}, Normal(mgl64.Vec3{}))
	assert.InDelta(t, 1, Normal(mgl64.Vec3{3, 4, 0}).Len(), 1e-9)
}

func TestNormalizeAngleWraps(t *testing.T) {
	cases := map[float64]float64{
		0:    0,
		180:  180,
		-180: 180,
		270:  -90,
		-270: 90,
		725:  5,
	}
	for in, want := range cases {
		assert.InDelta(t, want, NormalizeAngle(in), 1e-9, "angle %v", in)
	}
}

func TestLerpAngleTakesShortestArc(t *testing.T) {
	assert.InDelta(t, 180, LerpAngle(170, -170, 0.5), 1e-9)
	assert.InDelta(t, -170, LerpAngle(170, -170, 1), 1e-9)
}

func TestYawOfMatchesYawForward(t *testing.T) {
	for _, yaw := range []float64{-135, -45, 0, 30, 90, 179} {
		assert.InDelta(t, yaw, YawOf(YawForward(yaw)), 1e-9)
	}
	right := YawRight(0)
	assert.InDelta(t, -1, right.Y(), 1e-9)
}
