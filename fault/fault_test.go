package fault

import (
	"errors"
	"io"
	"testing"
)

func TestFaultWrapsOriginal(t *testing.T) {
	err := New(NotFoundCode, "log directory not found").WithOriginal(io.EOF)

	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected fault to unwrap to the original error")
	}
	if err.Error() != "log directory not found: EOF" {
		t.Fatalf("Error() = %q", err.Error())
	}

	var f Fault
	if !errors.As(error(err), &f) || f.Code() != NotFoundCode {
		t.Fatalf("errors.As did not find the fault code")
	}
}

func TestFieldErrorsMetadata(t *testing.T) {
	md := FieldErrorsMetadata{}
	md.Add("providers[0].type", "is required")
	md.Add("providers[0].type", "is unknown")

	f := New(BadInputCode, "invalid configuration").WithMetadata(md)

	got, ok := f.Metadata().(FieldErrorsMetadata)
	if !ok || len(got["providers[0].type"]) != 2 {
		t.Fatalf("unexpected metadata: %#v", f.Metadata())
	}
	if f.Message() != "invalid configuration" || f.Original() != nil {
		t.Fatalf("unexpected fault: %+v", f)
	}
}
