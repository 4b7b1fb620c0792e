package model

import (
	"bytes"
	"fmt"
	"time"

	xdr "github.com/davecgh/go-xdr/xdr2"
	"github.com/go-sod/spindex/internal/byteutil"
	"github.com/google/uuid"
)

// record is the stored form of a Place.
type record struct {
	ID        []byte
	Layer     string
	X         float64
	Y         float64
	Payload   []byte
	CreatedAt int64
}

// Encode serializes a place with XDR.
func Encode(p Place) ([]byte, error) {
	buf := byteutil.GetBytesBuf()
	defer byteutil.PutBytesBuf(buf)

	r := record{
		ID:        p.ID[:],
		Layer:     p.Layer,
		X:         p.X,
		Y:         p.Y,
		Payload:   p.Payload,
		CreatedAt: p.CreatedAt.UnixNano(),
	}
	if _, err := xdr.Marshal(buf, &r); err != nil {
		return nil, fmt.Errorf("xdr marshal place %s: %w", p.ID, err)
	}
	return byteutil.CopyBytes(buf), nil
}

func Decode(b []byte) (Place, error) {
	var r record
	if _, err := xdr.Unmarshal(bytes.NewReader(b), &r); err != nil {
		return Place{}, fmt.Errorf("xdr unmarshal place: %w", err)
	}
	id, err := uuid.FromBytes(r.ID)
	if err != nil {
		return Place{}, fmt.Errorf("place id: %w", err)
	}
	p := Place{
		ID:        id,
		Layer:     r.Layer,
		X:         r.X,
		Y:         r.Y,
		CreatedAt: time.Unix(0, r.CreatedAt).UTC(),
	}
	if len(r.Payload) > 0 {
		p.Payload = r.Payload
	}
	return p, nil
}
