package errs

import (
	"errors"
	"io"
	"testing"
)

func TestStorageWrapsAndUnwraps(t *testing.T) {
	err := Storage("load accounts", io.ErrUnexpectedEOF)

	var se *StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected StorageError, got %T", err)
	}
	if se.Op != "load accounts" {
		t.Errorf("op = %q, want load accounts", se.Op)
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("StorageError should unwrap to the cause")
	}
}

func TestStorageNil(t *testing.T) {
	if err := Storage("noop", nil); err != nil {
		t.Errorf("Storage(nil) = %v, want nil", err)
	}
}

func TestStorageDoesNotDoubleWrap(t *testing.T) {
	inner := Storage("inner", io.EOF)
	outer := Storage("outer", inner)
	if outer != inner {
		t.Errorf("expected the existing StorageError to pass through, got %v", outer)
	}
}
