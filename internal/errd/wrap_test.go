package errd

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
)

func readHeader(fail bool) (err error) {
	defer Wrap(&err, "failed to read %v", "header")
	if fail {
		return io.ErrUnexpectedEOF
	}
	return nil
}

func TestWrap(t *testing.T) {
	t.Parallel()

	err := readHeader(false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = readHeader(true)
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected wrapped %v but got %v", io.ErrUnexpectedEOF, err)
	}
	if !strings.HasPrefix(err.Error(), "failed to read header: ") {
		t.Fatalf("unexpected message: %q", err.Error())
	}
	if !strings.Contains(fmt.Sprintf("%+v", err), "wrap_test.go") {
		t.Fatalf("expected frame in detailed output: %+v", err)
	}
}
