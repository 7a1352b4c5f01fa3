package figure

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind identifies the geometry of a figure.
type Kind int

const (
	KindCircle Kind = iota
	KindEllipse
	KindRectangle
	KindRoundedRectangle
	KindPolygon
	KindNGon
	KindStar
)

var kindNames = [...]string{
	KindCircle:           "circle",
	KindEllipse:          "ellipse",
	KindRectangle:        "rectangle",
	KindRoundedRectangle: "roundedRectangle",
	KindPolygon:          "polygon",
	KindNGon:             "ngon",
	KindStar:             "star",
}

var kindLabels = [...]string{
	KindCircle:           "Circle",
	KindEllipse:          "Ellipse",
	KindRectangle:        "Rectangle",
	KindRoundedRectangle: "Rounded Rectangle",
	KindPolygon:          "Polygon",
	KindNGon:             "Ngon",
	KindStar:             "Star",
}

// AllKinds lists every kind in declaration order.
func AllKinds() []Kind {
	return []Kind{KindCircle, KindEllipse, KindRectangle, KindRoundedRectangle, KindPolygon, KindNGon, KindStar}
}

func (k Kind) valid() bool {
	return k >= KindCircle && k <= KindStar
}

// Name is the wire name of the kind.
func (k Kind) Name() string {
	if !k.valid() {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// String is the human readable label.
func (k Kind) String() string {
	if !k.valid() {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindLabels[k]
}

// ParseKind accepts wire names and labels, case-insensitively.
func ParseKind(s string) (Kind, error) {
	for _, k := range AllKinds() {
		if strings.EqualFold(s, kindNames[k]) || strings.EqualFold(s, kindLabels[k]) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

func (k Kind) MarshalJSON() ([]byte, error) {
	if !k.valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(k))
	}
	return json.Marshal(kindNames[k])
}

func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// LineType is the kind of edge drawn around a figure.
type LineType int

const (
	LineNone LineType = iota
	LineSolid
	LineDashed
)

var lineTypeNames = [...]string{
	LineNone:   "none",
	LineSolid:  "solid",
	LineDashed: "dashed",
}

func (l LineType) String() string {
	if l < LineNone || l > LineDashed {
		return fmt.Sprintf("LineType(%d)", int(l))
	}
	return lineTypeNames[l]
}

// ParseLineType parses a line type name. Unknown names are an error.
func ParseLineType(s string) (LineType, error) {
	for i, name := range lineTypeNames {
		if strings.EqualFold(s, name) {
			return LineType(i), nil
		}
	}
	return LineNone, fmt.Errorf("%w: %q", ErrUnknownLineType, s)
}

func (l LineType) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

func (l *LineType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseLineType(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
