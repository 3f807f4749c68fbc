package checksum

import "testing"

func TestSum_KnownValue(t *testing.T) {
	got := String("abc")
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got != want {
		t.Errorf("String(abc) = %q, want %q", got, want)
	}
	if Sum([]byte("abc")) != got {
		t.Error("Sum and String disagree")
	}
}

func TestShort(t *testing.T) {
	if s := Short("0123456789abcdef"); s != "0123456789ab" {
		t.Errorf("Short = %q", s)
	}
	if s := Short("abc"); s != "abc" {
		t.Errorf("Short(abc) = %q", s)
	}
}
