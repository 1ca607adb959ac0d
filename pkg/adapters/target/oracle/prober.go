package oracle

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// StorageVendor inspects v$cell. The view only has rows when the database is
// backed by Exadata storage cells; on anything else the query fails or
// returns zero, which the resolver treats accordingly.
func (a *Adapter) StorageVendor(ctx context.Context) (string, error) {
	var cells int
	err := a.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM v$cell`).Scan(&cells)
	if err != nil {
		return "", fmt.Errorf("storage probe failed: %w", err)
	}
	if cells > 0 {
		return "EXADATA", nil
	}
	return "OTHER", nil
}

// EditionBanner returns the first banner line from v$version.
func (a *Adapter) EditionBanner(ctx context.Context) (string, error) {
	var banner string
	err := a.db.QueryRowContext(ctx,
		`SELECT banner FROM v$version WHERE ROWNUM = 1`).Scan(&banner)
	if err != nil {
		return "", fmt.Errorf("edition probe failed: %w", err)
	}
	return banner, nil
}

// CompressionOption checks v$option for advanced compression support.
func (a *Adapter) CompressionOption(ctx context.Context) (bool, error) {
	var value string
	err := a.db.QueryRowContext(ctx,
		`SELECT value FROM v$option WHERE parameter = 'Advanced Compression'`).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("compression option probe failed: %w", err)
	}
	return strings.EqualFold(value, "TRUE"), nil
}
