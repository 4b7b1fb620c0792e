package geom

import "fmt"

// XY is a location on the plane.
type XY struct {
	X, Y float64
}

func NewXY(x, y float64) XY {
	return XY{X: x, Y: y}
}

// Axis returns the coordinate used to split at the given tree depth:
// x on even depths, y on odd ones.
func (p XY) Axis(depth int) float64 {
	if depth&1 == 0 {
		return p.X
	}
	return p.Y
}

func (p XY) Equal(p1 XY) bool {
	return p.X == p1.X && p.Y == p1.Y
}

func (p XY) String() string {
	return fmt.Sprintf("%g,%g", p.X, p.Y)
}

// Point is a location carrying an arbitrary payload.
type Point[T any] struct {
	XY
	Payload T
}

func NewPoint[T any](x, y float64, payload T) Point[T] {
	return Point[T]{XY: XY{X: x, Y: y}, Payload: payload}
}
