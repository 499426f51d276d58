package solver

import "testing"

func TestOpenSet_EqualFPopsInInsertionOrder(t *testing.T) {
	var o openSet
	o.push(5, 10)
	o.push(5, 11)
	o.push(3, 12)
	o.push(5, 13)
	o.push(5, 14)

	want := []int{12, 10, 11, 13, 14}
	for i, w := range want {
		if got := o.pop(); got != w {
			t.Fatalf("pop %d: got %d want %d", i, got, w)
		}
	}
	if o.Len() != 0 {
		t.Fatalf("len=%d want 0", o.Len())
	}
}
