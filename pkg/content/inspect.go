package content

import (
	"errors"
	"fmt"

	"github.com/jwebster45206/adventure-engine/pkg/jsonextract"
)

// Inspect runs the extraction and validation a Client applies to a
// provider response of the given shape, without calling a provider. It
// returns the decoded value or a *Error of KindParse or KindShape.
func Inspect(shape Shape, raw string) (any, error) {
	if !shape.Valid() {
		return nil, fmt.Errorf("unknown shape %q", shape)
	}
	doc, err := jsonextract.Extract(raw, false)
	if err != nil {
		msg := err.Error()
		var perr *jsonextract.ParseError
		if errors.As(err, &perr) {
			msg = perr.Diagnostic
		}
		return nil, &Error{Kind: KindParse, Op: Op(shape), Message: msg, RawText: raw, Err: err}
	}

	var v any
	switch shape {
	case ShapeOutline:
		v, err = parseOutline(doc)
	case ShapeWorld:
		v, err = parseWorld(doc)
	case ShapeSegment:
		v, _, err = parseSegment(doc)
	case ShapeExamination:
		v, err = parseExamination(doc)
	case ShapeFeasibility:
		v, err = parseFeasibility(doc)
	}
	if err != nil {
		return nil, &Error{Kind: KindShape, Op: Op(shape), Message: err.Error(), RawText: raw, Err: err}
	}
	return v, nil
}
