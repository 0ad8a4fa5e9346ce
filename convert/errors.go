package convert

import "errors"

// Errors returned by NewDispatcher when a source format is not
// satisfiable by any conversion kernel.
var (
	ErrUnsupportedEncoding     = errors.New("convert: unsupported encoding (not PCM)")
	ErrUnsupportedPackedWidth  = errors.New("convert: unsupported packed sample width")
	ErrUnsupportedAlignedWidth = errors.New("convert: unsupported aligned sample container or bit depth")
)
