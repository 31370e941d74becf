package geom

import "testing"

func TestRectInset(t *testing.T) {
	r := NewRect(10, 20, 100, 50)
	got := r.Inset(Edges{Top: 5, Right: 10, Bottom: 15, Left: 20})
	want := Rect{X: 30, Y: 25, Width: 70, Height: 30}
	if got != want {
		t.Errorf("Inset() = %v, want %v", got, want)
	}
}

func TestRectInsetNotClamped(t *testing.T) {
	got := NewRect(0, 0, 10, 10).Inset(EdgeAll(8))
	if got.Width != -6 || got.Height != -6 {
		t.Errorf("Inset() = %v, want negative extents", got)
	}
}

func TestRectAccessors(t *testing.T) {
	r := NewRect(10, 20, 100, 50)
	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"X2", r.X2(), 110},
		{"Y2", r.Y2(), 70},
		{"MidX", r.MidX(), 60},
		{"MidY", r.MidY(), 45},
		{"Size(h)", r.Size(Horizontal), 100},
		{"Size(v)", r.Size(Vertical), 50},
		{"Start(h)", r.Start(Horizontal), 10},
		{"Start(v)", r.Start(Vertical), 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %g, want %g", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestEdges(t *testing.T) {
	e := EdgeSymmetric(2, 3)
	if e.Vertical() != 4 || e.Horizontal() != 6 {
		t.Errorf("EdgeSymmetric sums = %g/%g", e.Vertical(), e.Horizontal())
	}
	if e.Along(Horizontal) != 6 || e.Along(Vertical) != 4 {
		t.Error("Along() mismatch")
	}
	if !(Edges{}).IsZero() || e.IsZero() {
		t.Error("IsZero() mismatch")
	}
	if Vertical.Cross() != Horizontal || Horizontal.Cross() != Vertical {
		t.Error("Cross() mismatch")
	}
}
