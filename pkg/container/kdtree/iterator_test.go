package kdtree

import (
	"errors"
	"testing"

	"github.com/go-sod/spindex/internal/geom"
)

func TestIterator_VisitsAll(t *testing.T) {
	tests := []struct {
		name   string
		points []geom.Point[int]
	}{
		{name: "single", points: randomPoints(newRNG(11), 1, 10)},
		{name: "random", points: randomPoints(newRNG(12), 777, 500)},
		{name: "duplicates", points: duplicatePoints(64, 0, 0)},
		{name: "line", points: linePoints(100)},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			tree, err := Build(test.points)
			if err != nil {
				t.Fatalf("build: %v", err)
			}
			seen := map[int]geom.XY{}
			for it := tree.Begin(); it.Valid(); it.Next() {
				p := it.Point()
				if _, ok := seen[p.Payload]; ok {
					t.Fatalf("point %v visited twice", p)
				}
				seen[p.Payload] = p.XY
			}
			if len(seen) != len(test.points) {
				t.Errorf("visited points got: %d, expected: %d", len(seen), len(test.points))
			}
			for _, p := range test.points {
				if xy, ok := seen[p.Payload]; !ok || !xy.Equal(p.XY) {
					t.Errorf("point %v missing or altered, got: %v", p, xy)
				}
			}
		})
	}
}

func TestIterator_LeftToRight(t *testing.T) {
	points := make([]geom.Point[int], 16)
	for i := range points {
		points[i] = geom.NewPoint(float64(i), float64(i), i)
	}
	tree, err := Build(points)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	// x and y grow together, so every left subtree holds the smaller points
	prev := -1.0
	for p := range tree.All() {
		if p.X < prev {
			t.Errorf("iteration went back from %v to %v", prev, p.X)
		}
		prev = p.X
	}
}

func TestIterator_Restartable(t *testing.T) {
	tree := cornersTree(t)
	var first, second []string
	for p := range tree.All() {
		first = append(first, p.Payload)
	}
	for p := range tree.All() {
		second = append(second, p.Payload)
	}
	if len(first) != 5 || len(first) != len(second) {
		t.Fatalf("walks got: %v and %v", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("walks differ at %d: %v and %v", i, first, second)
		}
	}
}

func TestIterator_AllStops(t *testing.T) {
	tree := cornersTree(t)
	n := 0
	for range tree.All() {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Errorf("early break visited %d points, expected 2", n)
	}
}

func TestTree_EraseByIteration(t *testing.T) {
	rng := newRNG(31)
	points := randomPoints(rng, 400, 200)
	tree, err := Build(points)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	oracle := newLinearScan(points)

	// erase every third point while walking
	i := 0
	erased := 0
	for it := tree.Begin(); it.Valid(); it.Next() {
		if i%3 == 0 {
			ok, err := tree.Erase(it)
			if err != nil || !ok {
				t.Fatalf("erase got: %v/%v, expected: true/nil", ok, err)
			}
			if !it.Erased() {
				t.Errorf("the iterator must observe its point as erased")
			}
			oracle.erased[it.Point().Payload] = true
			erased++
		}
		i++
	}
	if tree.Len() != len(points)-erased {
		t.Errorf("live points got: %d, expected: %d", tree.Len(), len(points)-erased)
	}

	n := 0
	for p := range tree.All() {
		if oracle.erased[p.Payload] {
			t.Errorf("iteration yielded erased point %v", p)
		}
		n++
	}
	if n != tree.Len() {
		t.Errorf("iteration visited %d points, expected %d", n, tree.Len())
	}

	for j := 0; j < 300; j++ {
		q := randomQuery(rng, 200)
		it, score, err := tree.Nearest(q)
		if err != nil {
			t.Fatalf("nearest: %v", err)
		}
		if oracle.erased[it.Point().Payload] {
			t.Errorf("nearest %v returned erased point %v", q, it.Point())
		}
		if _, expected, _ := oracle.nearest(q); score != expected {
			t.Errorf("nearest %v score got: %v, expected: %v", q, score, expected)
		}
		its, scores, err := tree.KNearest(q, 7)
		if err != nil {
			t.Fatalf("knn: %v", err)
		}
		expected := oracle.scores(q)
		for r := range its {
			if oracle.erased[its[r].Point().Payload] {
				t.Errorf("knn %v returned erased point %v", q, its[r].Point())
			}
			if scores[r] != expected[r] {
				t.Errorf("knn %v score %d got: %v, expected: %v", q, r, scores[r], expected[r])
			}
		}
	}
}

func TestTree_EraseIdempotent(t *testing.T) {
	tree := cornersTree(t)
	it, _, err := tree.Nearest(geom.NewXY(9, 9))
	if err != nil {
		t.Fatalf("nearest: %v", err)
	}
	tests := []struct {
		name     string
		expected bool
		live     int
	}{
		{name: "first", expected: true, live: 4},
		{name: "second", expected: false, live: 4},
		{name: "third", expected: false, live: 4},
	}
	for _, test := range tests {
		ok, err := tree.Erase(it)
		if err != nil {
			t.Fatalf("%s erase: %v", test.name, err)
		}
		if ok != test.expected {
			t.Errorf("%s erase got: %v, expected: %v", test.name, ok, test.expected)
		}
		if tree.Len() != test.live {
			t.Errorf("%s live points got: %d, expected: %d", test.name, tree.Len(), test.live)
		}
	}
}

func TestTree_EraseInvalidHandles(t *testing.T) {
	tree := cornersTree(t)
	other := cornersTree(t)

	exhausted := tree.Begin()
	for exhausted.Valid() {
		exhausted.Next()
	}
	foreign, _, _ := other.Nearest(geom.NewXY(0, 0))

	tests := []struct {
		name        string
		it          *Iterator[string]
		expectedErr error
	}{
		{name: "nil", it: nil},
		{name: "exhausted", it: exhausted},
		{name: "foreign", it: foreign, expectedErr: ErrStaleHandle},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			ok, err := tree.Erase(test.it)
			if !errors.Is(err, test.expectedErr) {
				t.Errorf("erase error got: %v, expected: %v", err, test.expectedErr)
			}
			if ok {
				t.Errorf("an invalid handle must not erase anything")
			}
			if tree.Len() != 5 {
				t.Errorf("live points got: %d, expected: 5", tree.Len())
			}
		})
	}
}

func TestIterator_Handle(t *testing.T) {
	tree := cornersTree(t)
	handles := map[string]*Iterator[string]{}
	for it := tree.Begin(); it.Valid(); it.Next() {
		handles[it.Point().Payload] = it.Handle()
	}
	if len(handles) != 5 {
		t.Fatalf("handles got: %d, expected: 5", len(handles))
	}
	if ok, err := tree.Erase(handles["e"]); err != nil || !ok {
		t.Fatalf("erase by handle got: %v/%v", ok, err)
	}
	for p := range tree.All() {
		if p.Payload == "e" {
			t.Errorf("erased point e still iterated")
		}
	}
	h := handles["a"]
	h.Next()
	if h.Valid() {
		t.Errorf("a handle must be exhausted after one step")
	}
}

func TestIterator_Clone(t *testing.T) {
	tree := cornersTree(t)
	it := tree.Begin()
	clone := it.Clone()
	it.Next()
	if clone.Point().Payload == it.Point().Payload {
		t.Errorf("advancing the iterator must not move its clone")
	}
	clone.Next()
	if clone.Point().Payload != it.Point().Payload {
		t.Errorf("clone got: %v, expected: %v", clone.Point().Payload, it.Point().Payload)
	}
}

func TestIterator_SkipsErasedFirst(t *testing.T) {
	tree := cornersTree(t)
	first := tree.Begin()
	firstPayload := first.Point().Payload
	if _, err := tree.Erase(first); err != nil {
		t.Fatalf("erase: %v", err)
	}
	// the parked iterator still sees its point
	if first.Point().Payload != firstPayload {
		t.Errorf("parked iterator got: %v, expected: %v", first.Point().Payload, firstPayload)
	}
	restarted := tree.Begin()
	if !restarted.Valid() || restarted.Point().Payload == firstPayload {
		t.Errorf("a new walk must skip the erased first point")
	}
}
