package accounts

import "time"

// AccountType enumerates CoA categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// AccountTypes lists the types in statement order.
var AccountTypes = []AccountType{
	AccountTypeAsset,
	AccountTypeLiability,
	AccountTypeEquity,
	AccountTypeRevenue,
	AccountTypeExpense,
}

// Side is the debit or credit side of an entry or balance.
type Side string

const (
	SideDebit  Side = "DEBIT"
	SideCredit Side = "CREDIT"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideDebit {
		return SideCredit
	}
	return SideDebit
}

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	for _, known := range AccountTypes {
		if t == known {
			return true
		}
	}
	return false
}

// NaturalSide is the side on which the account type increases.
func (t AccountType) NaturalSide() Side {
	switch t {
	case AccountTypeAsset, AccountTypeExpense:
		return SideDebit
	default:
		return SideCredit
	}
}

// Account models a chart of accounts node.
type Account struct {
	ID              int64       `json:"id"`
	Code            string      `json:"code"`
	Name            string      `json:"name"`
	Type            AccountType `json:"type"`
	ParentID        *int64      `json:"parent_id"`
	Level           int         `json:"level"`
	AcceptsPostings bool        `json:"accepts_postings"`
	IsActive        bool        `json:"is_active"`
	Description     string      `json:"description"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// Postable reports whether entries may be booked against the account.
func (a Account) Postable() bool {
	return a.IsActive && a.AcceptsPostings
}

// Manual is the per-account usage guide.
type Manual struct {
	AccountID      int64     `json:"account_id"`
	Description    string    `json:"description"`
	Instructions   string    `json:"instructions"`
	Examples       string    `json:"examples"`
	Classification string    `json:"classification"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ManualView joins a manual with its account and derived nature.
type ManualView struct {
	Account Account `json:"account"`
	Nature  Side    `json:"nature"`
	Manual  Manual  `json:"manual"`
}

// ListFilters narrows account listings.
type ListFilters struct {
	Search   string
	Type     AccountType
	Active   *bool
	Postable *bool
}

// TreeNode is an account positioned in the ordered tree.
type TreeNode struct {
	Account
	HasChildren bool `json:"has_children"`
}
