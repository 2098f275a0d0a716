package ram

import "testing"

func TestStoreLoadRoundTrip(t *testing.T) {
	r := New(0x80000000, 0x1000)
	if err := r.Store(0x80000004, 4, 0x12345678); err != nil {
		t.Fatalf("Store: %v", err)
	}
	v, err := r.Load(0x80000004, 4)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if v != 0x12345678 {
		t.Errorf("Load = %#x, want %#x", v, 0x12345678)
	}
}

func TestLoadSegmentCopiesBytes(t *testing.T) {
	r := New(0x80000000, 0x1000)
	data := []byte{1, 2, 3, 4}
	if err := r.LoadSegment(0x80000100, data); err != nil {
		t.Fatalf("LoadSegment: %v", err)
	}
	v, _ := r.Load(0x80000100, 4)
	if v != 0x04030201 {
		t.Errorf("Load after LoadSegment = %#x, want %#x (little-endian)", v, 0x04030201)
	}
}

func TestOutOfRangeAccessFails(t *testing.T) {
	r := New(0x80000000, 0x1000)
	if _, err := r.Load(0x80000ffe, 4); err == nil {
		t.Error("load spanning past the window end did not return an error")
	}
	if err := r.Store(0x90000000, 4, 0); err == nil {
		t.Error("store far outside the window did not return an error")
	}
}
