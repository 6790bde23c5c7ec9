package adapter

import (
	"errors"
	"testing"

	"github.com/cloudimpl/rowql/core"
)

func TestNotFoundErrWrapsSentinel(t *testing.T) {
	err := notFoundErr("a.csv", errors.New("no such file"))
	if !errors.Is(err, core.ErrFileNotFound) {
		t.Error("notFoundErr should wrap core.ErrFileNotFound")
	}
	if core.Kind(err) != core.KindFileNotFound {
		t.Errorf("Kind(err) = %v, want KindFileNotFound", core.Kind(err))
	}
}

func TestInvalidFormatErrWrapsSentinel(t *testing.T) {
	err := invalidFormatErr("a.json", errors.New("unexpected token"))
	if !errors.Is(err, core.ErrInvalidFormat) {
		t.Error("invalidFormatErr should wrap core.ErrInvalidFormat")
	}
	if core.Kind(err) != core.KindInvalidFormat {
		t.Errorf("Kind(err) = %v, want KindInvalidFormat", core.Kind(err))
	}
}
