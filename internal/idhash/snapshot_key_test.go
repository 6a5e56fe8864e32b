package idhash

import "testing"

func TestComputeSnapshotKey(t *testing.T) {
	a := ComputeSnapshotKey("2020-06-10", "acc", "srv", "EURUSD")
	b := ComputeSnapshotKey("2020-06-10", "acc", "srv", "EURUSD")

	if len(a) != 64 {
		t.Errorf("ComputeSnapshotKey() length = %d, want 64", len(a))
	}
	if a != b {
		t.Error("ComputeSnapshotKey() is not deterministic")
	}
}

func TestComputeSnapshotKey_FieldsMatter(t *testing.T) {
	base := ComputeSnapshotKey("2020-06-10", "acc", "srv", "EURUSD")

	variants := map[string]string{
		"date":       ComputeSnapshotKey("2020-06-11", "acc", "srv", "EURUSD"),
		"account":    ComputeSnapshotKey("2020-06-10", "acc2", "srv", "EURUSD"),
		"server":     ComputeSnapshotKey("2020-06-10", "acc", "srv2", "EURUSD"),
		"instrument": ComputeSnapshotKey("2020-06-10", "acc", "srv", "GBPUSD"),
	}
	for field, got := range variants {
		if got == base {
			t.Errorf("changing %s did not change the key", field)
		}
	}
}

func TestComputeDigest(t *testing.T) {
	if ComputeDigest([]byte("a")) == ComputeDigest([]byte("b")) {
		t.Error("different payloads share a digest")
	}
	if ComputeDigest(nil) != ComputeDigest([]byte{}) {
		t.Error("nil and empty payloads should hash the same")
	}
}
