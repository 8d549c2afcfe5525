package analysis

import (
	"errors"

	"github.com/dmitrijs2005/contentiq/internal/client/models"
)

var (
	ErrMissingInput = errors.New("url or prompt is required")
	ErrMissingFile  = errors.New("source file missing: upload required")
	ErrUnknownKind  = models.ErrUnknownKind
	ErrProvider     = errors.New("analysis failed")
	// ErrSaveFailed is returned together with a valid item when the
	// analysis succeeded but could not be stored locally.
	ErrSaveFailed = errors.New("analysis could not be saved")
)
