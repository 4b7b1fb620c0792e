package model

import (
	"encoding/json"
	"time"

	"github.com/go-sod/spindex/internal/geom"
	"github.com/google/uuid"
)

func NewPlace(layer string, xy geom.XY, createdAt time.Time, payload json.RawMessage) Place {
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	return Place{
		ID:        uuid.New(),
		Layer:     layer,
		X:         xy.X,
		Y:         xy.Y,
		Payload:   payload,
		CreatedAt: createdAt,
	}
}

// Place is a stored point of a layer. The payload is kept as raw json and
// handed back to callers untouched.
type Place struct {
	ID        uuid.UUID       `json:"id"`
	Layer     string          `json:"layer"`
	X         float64         `json:"x"`
	Y         float64         `json:"y"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

func (p Place) XY() geom.XY {
	return geom.NewXY(p.X, p.Y)
}

// Point returns the place as an index point carrying itself as payload.
func (p Place) Point() geom.Point[Place] {
	return geom.Point[Place]{XY: p.XY(), Payload: p}
}
