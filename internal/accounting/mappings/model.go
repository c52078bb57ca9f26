package mappings

import "time"

// Module groups mapping keys by the feature that posts with them.
const ModuleInvoicing = "INVOICING"

// Keys used by the invoicing bridge.
const (
	KeyReceivable = "receivable"
	KeySales      = "sales"
	KeyTaxPayable = "tax_payable"
	KeyCash       = "cash"
)

// AccountMapping links integration keys to ledger accounts.
type AccountMapping struct {
	Module      string    `json:"module"`
	Key         string    `json:"key"`
	AccountID   int64     `json:"account_id"`
	AccountCode string    `json:"account_code"`
	AccountName string    `json:"account_name"`
	UpdatedAt   time.Time `json:"updated_at"`
}
