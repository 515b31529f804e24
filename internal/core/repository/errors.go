package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/duynhne/catalog-service/internal/core/domain"
)

// mapWriteError translates constraint violations into domain errors and
// leaves everything else untouched.
func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		return fmt.Errorf("%w: %s", domain.ErrDuplicate, pgErr.ConstraintName)
	case pgerrcode.ForeignKeyViolation:
		return fmt.Errorf("%w: %s", domain.ErrReferenceMissing, pgErr.ConstraintName)
	case pgerrcode.StringDataRightTruncationDataException:
		return fmt.Errorf("%w: %s", domain.ErrValueTooLong, pgErr.Message)
	}
	return err
}
