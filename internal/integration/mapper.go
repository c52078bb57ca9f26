package integration

import (
	"fmt"

	"github.com/google/uuid"
)

// sourceNamespace seeds the deterministic ids of bridge postings.
var sourceNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("ledgerbook:invoicing"))

// InvoiceSourceRef is the idempotency key of an invoice's sale posting.
func InvoiceSourceRef(invoiceID int64) string {
	return fmt.Sprintf("INVOICE:%d", invoiceID)
}

// PaymentSourceRef is the idempotency key of an invoice's cash receipt.
func PaymentSourceRef(invoiceID int64) string {
	return fmt.Sprintf("INVOICE-PAYMENT:%d", invoiceID)
}

// SourceID derives a stable uuid from a source reference.
func SourceID(ref string) uuid.UUID {
	return uuid.NewSHA1(sourceNamespace, []byte(ref))
}
