//go:build !sqlite

package storage

import "github.com/cockroachdb/errors"

func newSQLiteStore(_ string) (Store, error) {
	return nil, errors.WithHint(
		errors.Wrap(ErrUnsupportedStore, "sqlite backend unavailable in this build"),
		"rebuild with -tags sqlite",
	)
}
