package accounts

import "github.com/go-playground/validator/v10"

var validate = validator.New()

// CreateInput carries a new chart of accounts node.
type CreateInput struct {
	Code       string      `json:"code" validate:"required,max=20,alphanum"`
	Name       string      `json:"name" validate:"required,max=255"`
	Type       AccountType `json:"type" validate:"required,oneof=ASSET LIABILITY EQUITY REVENUE EXPENSE"`
	ParentCode *string     `json:"parentCode" validate:"omitempty,max=20,alphanum"`
	IsDetail   bool        `json:"isDetail"`
	IsActive   *bool       `json:"isActive"`
}

// UpdateInput carries mutable account attributes; nil fields are left unchanged.
// An empty ParentCode moves the account to the top level.
type UpdateInput struct {
	Name       *string      `json:"name" validate:"omitempty,max=255"`
	ParentCode *string      `json:"parentCode" validate:"omitempty,max=20,alphanum"`
	Type       *AccountType `json:"type" validate:"omitempty,oneof=ASSET LIABILITY EQUITY REVENUE EXPENSE"`
	IsDetail   *bool        `json:"isDetail"`
	IsActive   *bool        `json:"isActive"`
}
