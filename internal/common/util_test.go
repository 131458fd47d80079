package common

import (
	"testing"
)

// ---------- WipeByteArray ----------

func TestWipeByteArray_ZerosBuffer(t *testing.T) {
	buf := []byte{1, 2, 3, 4, 5}
	WipeByteArray(buf)
	for i, v := range buf {
		if v != 0 {
			t.Fatalf("expected buf[%d]==0, got %d", i, v)
		}
	}
}

func TestWipeByteArray_NilSafe(t *testing.T) {
	WipeByteArray(nil)
}

// ---------- GenerateRandByteArray ----------

func TestGenerateRandByteArray_Basic(t *testing.T) {
	const n = 24
	buf := GenerateRandByteArray(n)
	if buf == nil {
		t.Fatalf("expected non-nil slice")
	}
	if len(buf) != n {
		t.Fatalf("expected length %d, got %d", n, len(buf))
	}
}

func TestGenerateRandByteArray_EntropyHint(t *testing.T) {
	const n = 32
	a := GenerateRandByteArray(n)
	b := GenerateRandByteArray(n)

	if len(a) != n || len(b) != n {
		t.Fatalf("unexpected lengths: %d, %d", len(a), len(b))
	}

	identical := true
	for i := range a {
		if a[i] != b[i] {
			identical = false
			break
		}
	}
	if identical {
		t.Logf("warning: two GenerateRandByteArray(%d) results are identical; extremely unlikely", n)
	}
}

// ---------- NormalizeEmail ----------

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Ana@Ex.com ", "ana@ex.com"},
		{"  ANA@EX.COM", "ana@ex.com"},
		{"\tana@ex.com\n", "ana@ex.com"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := NormalizeEmail(tc.in); got != tc.want {
			t.Fatalf("NormalizeEmail(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeEmail_Idempotent(t *testing.T) {
	once := NormalizeEmail(" Mixed@Case.Org ")
	if twice := NormalizeEmail(once); twice != once {
		t.Fatalf("expected idempotent normalization, got %q then %q", once, twice)
	}
}

// ---------- IsAdminRole ----------

func TestIsAdminRole(t *testing.T) {
	for _, r := range []string{"Admin", "admin", " ADMIN "} {
		if !IsAdminRole(r) {
			t.Fatalf("expected %q to be admin", r)
		}
	}
	for _, r := range []string{"Reader", "Operator", "", "administrator"} {
		if IsAdminRole(r) {
			t.Fatalf("expected %q not to be admin", r)
		}
	}
}
