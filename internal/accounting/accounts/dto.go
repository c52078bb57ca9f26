package accounts

// AccountInput is the payload for creating or updating an account.
type AccountInput struct {
	Code            string      `json:"code" validate:"required,max=20"`
	Name            string      `json:"name" validate:"required,max=200"`
	Type            AccountType `json:"type" validate:"required,oneof=ASSET LIABILITY EQUITY REVENUE EXPENSE"`
	ParentID        *int64      `json:"parent_id" validate:"omitempty,gt=0"`
	AcceptsPostings bool        `json:"accepts_postings"`
	Description     string      `json:"description" validate:"max=2000"`
}

// ManualInput is the payload for saving an account manual.
type ManualInput struct {
	Description    string `json:"description" validate:"max=4000"`
	Instructions   string `json:"instructions" validate:"max=4000"`
	Examples       string `json:"examples" validate:"max=4000"`
	Classification string `json:"classification" validate:"max=200"`
}
