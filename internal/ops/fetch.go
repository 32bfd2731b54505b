package ops

import (
	"context"
	"database/sql"
	"os"

	"github.com/hpungsan/grabtext/internal/capture"
	"github.com/hpungsan/grabtext/internal/db"
	"github.com/hpungsan/grabtext/internal/errors"
)

// FetchInput contains parameters for the Fetch operation.
type FetchInput struct {
	ID          int64
	IncludeText *bool // default: true (nil means default)
}

// FetchOutput contains the result of the Fetch operation.
type FetchOutput struct {
	capture.Result      // embedded (copy, not pointer)
	ArtifactExists bool `json:"artifact_exists"`
}

// Fetch retrieves a single capture result by ID.
func Fetch(ctx context.Context, database *sql.DB, input FetchInput) (*FetchOutput, error) {
	if input.ID <= 0 {
		return nil, errors.NewInvalidRequest("id must be a positive integer")
	}

	r, err := db.GetByID(ctx, database, input.ID)
	if err != nil {
		return nil, err
	}

	output := Describe(*r)

	includeText := true
	if input.IncludeText != nil {
		includeText = *input.IncludeText
	}
	if !includeText {
		output.ExtractedText = ""
	}

	return output, nil
}

// Describe builds a FetchOutput for a result already in hand, e.g. a row
// on the loaded history page.
func Describe(r capture.Result) *FetchOutput {
	output := &FetchOutput{Result: r}
	if info, err := os.Stat(r.ImagePath); err == nil && info.Mode().IsRegular() {
		output.ArtifactExists = true
	}
	return output
}
