package shared

import appshared "github.com/ledgerbook/ledgerbook/internal/shared"

var (
	// ErrClientNotFound indicates a missing client.
	ErrClientNotFound = appshared.NewDomainError(appshared.ErrNotFound, "NotFound", "invoicing: client not found")
	// ErrProductNotFound indicates a missing product.
	ErrProductNotFound = appshared.NewDomainError(appshared.ErrNotFound, "NotFound", "invoicing: product not found")
	// ErrInvoiceNotFound indicates a missing invoice.
	ErrInvoiceNotFound = appshared.NewDomainError(appshared.ErrNotFound, "NotFound", "invoicing: invoice not found")

	// ErrDuplicateCode indicates the client or product code is taken.
	ErrDuplicateCode = appshared.NewDomainError(appshared.ErrConflict, "DuplicateCode", "invoicing: code already exists")
	// ErrInUse indicates the record is referenced by invoices.
	ErrInUse = appshared.NewDomainError(appshared.ErrConflict, "InUse", "invoicing: record is referenced by invoices")
	// ErrInvalidStatus indicates the invoice cannot make the requested transition.
	ErrInvalidStatus = appshared.NewDomainError(appshared.ErrConflict, "InvalidStatus", "invoicing: invalid invoice status transition")

	// ErrInactive indicates an inactive client or product was referenced.
	ErrInactive = appshared.NewDomainError(appshared.ErrUnprocessable, "Inactive", "invoicing: client or product is inactive")
	// ErrCreditLimit indicates the invoice would exceed the client's credit limit.
	ErrCreditLimit = appshared.NewDomainError(appshared.ErrUnprocessable, "CreditLimitExceeded", "invoicing: client credit limit exceeded")
)
