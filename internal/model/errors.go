package model

import "errors"

// Purchase and pricing failures. Each one aborts the whole call.
var (
	ErrSaleNotLive               = errors.New("sale not live")
	ErrWhitelistMismatch         = errors.New("whitelist mismatch")
	ErrCertificateMarketMismatch = errors.New("certificate market mismatch")
	ErrMarketNotFound            = errors.New("market not found")
	ErrInsufficientFunds         = errors.New("insufficient funds")
	ErrPermissionDenied          = errors.New("permission denied")
)

// Registry and wallet failures.
var (
	ErrListingNotFound     = errors.New("listing not found")
	ErrInventoryNotFound   = errors.New("inventory not found")
	ErrInventoryEmpty      = errors.New("inventory empty")
	ErrCertificateNotFound = errors.New("certificate not found")
	ErrCertificateBurned   = errors.New("certificate already burned")
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrAssetExists         = errors.New("asset already exists")
	ErrAmountOverflow      = errors.New("amount overflow")
)

// Kind returns a short snake_case label for the sentinel err wraps, or
// "internal" for anything unrecognised.
func Kind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "internal"
}

var kinds = []struct {
	err  error
	name string
}{
	{ErrSaleNotLive, "sale_not_live"},
	{ErrWhitelistMismatch, "whitelist_mismatch"},
	{ErrCertificateMarketMismatch, "certificate_market_mismatch"},
	{ErrMarketNotFound, "market_not_found"},
	{ErrInsufficientFunds, "insufficient_funds"},
	{ErrPermissionDenied, "permission_denied"},
	{ErrListingNotFound, "listing_not_found"},
	{ErrInventoryNotFound, "inventory_not_found"},
	{ErrInventoryEmpty, "inventory_empty"},
	{ErrCertificateNotFound, "certificate_not_found"},
	{ErrCertificateBurned, "certificate_burned"},
	{ErrWalletNotFound, "wallet_not_found"},
	{ErrAssetExists, "asset_exists"},
	{ErrAmountOverflow, "amount_overflow"},
}
