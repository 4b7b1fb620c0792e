package integration

import (
	"encoding/json"
	"net/http"
	"time"
)

type Item struct {
	X         float64         `json:"x"`
	Y         float64         `json:"y"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"createdAt,omitempty"`
}

type CollectRequest struct {
	Layer string `json:"layer"`
	Data  []Item `json:"data"`
}

type CollectResponse struct {
	Status string   `json:"status"`
	Layer  string   `json:"layer"`
	IDs    []string `json:"ids"`
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type NearestRequest struct {
	Layer string  `json:"layer"`
	K     int     `json:"k,omitempty"`
	Data  []Point `json:"data"`
}

type Neighbour struct {
	ID       string          `json:"id"`
	X        float64         `json:"x"`
	Y        float64         `json:"y"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	Distance float64         `json:"distance"`
}

type Answer struct {
	Query      Point       `json:"query"`
	Neighbours []Neighbour `json:"neighbours"`
}

type NearestResponse struct {
	Layer string   `json:"layer"`
	Data  []Answer `json:"data"`
}

type EraseRequest struct {
	Layer string   `json:"layer"`
	IDs   []string `json:"ids"`
}

type EraseResponse struct {
	Layer   string   `json:"layer"`
	Erased  []string `json:"erased"`
	Skipped []string `json:"skipped"`
	Missing []string `json:"missing"`
}

type LayerStats struct {
	Layer   string    `json:"layer"`
	Live    int       `json:"live"`
	Size    int       `json:"size"`
	Nodes   int       `json:"nodes"`
	Depth   int       `json:"depth"`
	BuiltAt time.Time `json:"builtAt"`
}

// StatusError is returned for non 2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return "unexpected status " + http.StatusText(e.Code) + ": " + e.Body
}
