package watchfile

import "testing"

func TestAddStartsUnregistered(t *testing.T) {
	reg := NewRegistry()
	f := reg.Add("a.txt")

	if f.Handle != NoHandle {
		t.Errorf("Expected new file to carry the sentinel handle, got %d", f.Handle)
	}
	if reg.Len() != 1 {
		t.Errorf("Expected registry length 1, got %d", reg.Len())
	}
}

func TestLookupFindsRegisteredHandles(t *testing.T) {
	reg := NewRegistry()
	a := reg.Add("a.txt")
	b := reg.Add("b.txt")
	a.Handle = 4
	b.Handle = 7

	got, ok := reg.Lookup(4)
	if !ok || got != a {
		t.Errorf("Lookup(4) = %v, %v; expected a.txt", got, ok)
	}
	got, ok = reg.Lookup(7)
	if !ok || got != b {
		t.Errorf("Lookup(7) = %v, %v; expected b.txt", got, ok)
	}
}

func TestLookupMissesUnknownHandle(t *testing.T) {
	reg := NewRegistry()
	f := reg.Add("a.txt")
	f.Handle = 4

	if _, ok := reg.Lookup(99); ok {
		t.Error("Expected lookup miss for a handle that was never registered")
	}
}

func TestLookupMissesInvalidatedHandle(t *testing.T) {
	reg := NewRegistry()
	f := reg.Add("a.txt")
	f.Handle = 4
	f.Invalidate()

	if _, ok := reg.Lookup(4); ok {
		t.Error("Expected lookup miss after the handle was invalidated")
	}
	if _, ok := reg.Lookup(NoHandle); ok {
		t.Error("The sentinel handle must never match")
	}
}

func TestHandleReplacement(t *testing.T) {
	reg := NewRegistry()
	f := reg.Add("a.txt")
	f.Handle = 4
	f.Invalidate()
	f.Handle = 9

	got, ok := reg.Lookup(9)
	if !ok || got != f {
		t.Errorf("Expected the replaced handle to resolve to the same file, got %v, %v", got, ok)
	}
	if _, ok := reg.Lookup(4); ok {
		t.Error("Expected the old handle to stop resolving after replacement")
	}
}
