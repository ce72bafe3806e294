package checksum

import "testing"

func TestSum_Known(t *testing.T) {
	got := Sum([]byte("abc"))
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got != want {
		t.Errorf("Sum = %q, want %q", got, want)
	}
}

func TestID_SeparatesParts(t *testing.T) {
	if ID("ab", "c") == ID("a", "bc") {
		t.Error("ID should not collide when part boundaries differ")
	}
	if len(ID("food", "apple")) != 16 {
		t.Errorf("ID length = %d, want 16", len(ID("food", "apple")))
	}
	if ID("food", "apple") != ID("food", "apple") {
		t.Error("ID should be deterministic")
	}
}
