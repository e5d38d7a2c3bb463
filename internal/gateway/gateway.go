// Package gateway talks to the remote data API. The API itself is an
// external collaborator; this package only consumes its CRUD/read contract.
package gateway

import (
	"context"

	"github.com/mlodari/camposanto/internal/models"
)

// SelectOptions narrows and shapes a Select call.
type SelectOptions struct {
	// Filter matches columns for equality.
	Filter map[string]string

	// Relations names nested child collections to expand in the same call,
	// in the API's embed syntax, e.g. "Settore(*,Blocco(*))".
	Relations []string

	// OrderBy orders the result by the named field.
	OrderBy string
}

// Gateway is the remote data contract. Errors are structured failures,
// always distinguishable from an empty result.
type Gateway interface {
	// Select reads records, optionally expanding nested relations.
	Select(ctx context.Context, domain string, opts SelectOptions) ([]models.Record, error)

	// SelectByID reads one record or returns common.ErrorNotFound.
	SelectByID(ctx context.Context, domain, id string) (models.Record, error)

	// Insert creates a record and returns it as stored remotely. When the
	// supplied record carries an identifier the server honors it; otherwise
	// the server assigns one.
	Insert(ctx context.Context, domain string, rec models.Record) (models.Record, error)

	// Update applies a partial update by primary identifier.
	Update(ctx context.Context, domain, id string, partial models.Record) error

	// Delete removes a record by primary identifier.
	Delete(ctx context.Context, domain, id string) error
}
