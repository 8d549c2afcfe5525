package archive

import (
	"errors"

	"github.com/dmitrijs2005/contentiq/internal/client/filestore"
)

func isNotFound(err error) bool {
	return errors.Is(err, filestore.ErrNotFound)
}
