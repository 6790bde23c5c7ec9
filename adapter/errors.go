package adapter

import (
	"fmt"

	"github.com/cloudimpl/rowql/core"
)

func notFoundErr(path string, cause error) error {
	return fmt.Errorf("open %q: %w: %v", path, core.ErrFileNotFound, cause)
}

func invalidFormatErr(path string, cause error) error {
	return fmt.Errorf("%q: %w: %v", path, core.ErrInvalidFormat, cause)
}
