package writer

import (
	"fmt"

	"github.com/pokemnky/catalog-sync/internal/cache"
)

// Stage names the step of the write path at which an item failed
type Stage string

// Failure stages
const (
	StageFetch    Stage = "fetch"
	StageValidate Stage = "validate"
	StageStore    Stage = "store"
)

// Failure describes why one item could not be stored
type Failure struct {
	// Identifier is the source URL of the item
	Identifier string
	Stage      Stage
	Err        error
}

// Error implements the error interface
func (f *Failure) Error() string {
	return fmt.Sprintf("%s failed for %s: %v", f.Stage, f.Identifier, f.Err)
}

// Unwrap returns the underlying error
func (f *Failure) Unwrap() error {
	return f.Err
}

// Outcome is the result of handling one item. Exactly one of Stored and Failure is set.
type Outcome struct {
	Stored  *cache.Resource
	Failure *Failure
}

// OK reports whether the item was stored
func (o Outcome) OK() bool {
	return o.Failure == nil && o.Stored != nil
}

// Err returns the failure as an error, or nil
func (o Outcome) Err() error {
	if o.Failure == nil {
		return nil
	}
	return o.Failure
}

// Stored builds a successful outcome
func Stored(res cache.Resource) Outcome {
	return Outcome{Stored: &res}
}

// Failed builds a failed outcome
func Failed(identifier string, stage Stage, err error) Outcome {
	return Outcome{Failure: &Failure{Identifier: identifier, Stage: stage, Err: err}}
}
