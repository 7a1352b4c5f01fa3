package figure

import "errors"

var (
	ErrNoPaint         = errors.New("figure needs a fill or an edge color")
	ErrUnknownKind     = errors.New("unknown figure kind")
	ErrUnknownLineType = errors.New("unknown line type")
	ErrInvalidColor    = errors.New("invalid color")
	ErrInvalidScale    = errors.New("scale factor must be positive")
	ErrInvalidShape    = errors.New("invalid shape parameters")
)
