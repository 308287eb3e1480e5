package store

import (
	"reflect"
	"testing"
)

func TestStopSetRowRoundTrip(t *testing.T) {
	in := Sample()
	row, err := encodeRow(in)
	if err != nil {
		t.Fatal(err)
	}
	if row.Demands != nil {
		t.Fatalf("empty demands should be stored as NULL")
	}
	args := row.args()
	if args[4] != nil {
		t.Fatalf("demands arg = %v, want nil", args[4])
	}
	out, err := row.decode()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("round trip mismatch:\n%+v\n%+v", in, out)
	}
}

func TestStopSetRowDecodeError(t *testing.T) {
	r := stopSetRow{Name: "broken", Coordinates: []byte(`[[1]]`)}
	if _, err := r.decode(); err == nil {
		t.Fatalf("expected error for malformed coordinate")
	}
}
