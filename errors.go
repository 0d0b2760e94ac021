package slidegraft

import "errors"

// Sentinel errors distinguishing the failure classes of a slide copy.
//
// Structural-integrity failures (ErrPartNotFound, ErrRelationshipNotFound,
// ErrShapeTreeMissing) abort the current slide copy: continuing would write
// a corrupt destination. ErrSlideIndexOutOfRange is recoverable; batch
// callers skip the single selection and continue. A missing color scheme is
// not an error at all: normalization simply becomes a no-op.
var (
	ErrPartNotFound          = errors.New("part not found")
	ErrRelationshipNotFound  = errors.New("relationship not found")
	ErrShapeTreeMissing      = errors.New("shape tree missing")
	ErrSlideIndexOutOfRange  = errors.New("slide index out of range")
	ErrLayoutIndexOutOfRange = errors.New("layout index out of range")
)
