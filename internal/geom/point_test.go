package geom

import "testing"

func TestXY_Axis(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		p        XY
		depth    int
		expected float64
	}{
		{name: "root", p: XY{1, 2}, depth: 0, expected: 1},
		{name: "odd", p: XY{1, 2}, depth: 1, expected: 2},
		{name: "even", p: XY{1, 2}, depth: 4, expected: 1},
		{name: "deep_odd", p: XY{1, 2}, depth: 7, expected: 2},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			if got := test.p.Axis(test.depth); got != test.expected {
				t.Errorf("axis selected incorrectly, got: %f, expected: %f", got, test.expected)
			}
		})
	}
}

func TestXY_Equal(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		p        XY
		p1       XY
		expected bool
	}{
		{name: "positive", p: XY{10, 10}, p1: XY{10, 10}, expected: true},
		{name: "negative", p: XY{10, 10}, p1: XY{11, 10}, expected: false},
	}
	for _, test := range tests {
		if test.p.Equal(test.p1) != test.expected {
			t.Errorf("the comparison of points, got: %v, expected: %v", test.p.Equal(test.p1), test.expected)
		}
	}
}

func TestNewPoint(t *testing.T) {
	t.Parallel()
	p := NewPoint(3, 4, "payload")
	if p.X != 3 || p.Y != 4 {
		t.Errorf("coordinates got: %v, expected: 3,4", p.XY)
	}
	if p.Payload != "payload" {
		t.Errorf("payload got: %v, expected: payload", p.Payload)
	}
	if p.String() != "3,4" {
		t.Errorf("string form got: %s, expected: 3,4", p.String())
	}
}
