package request

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/CodingTam/requesthtml/internal"
	"github.com/CodingTam/requesthtml/internal/core/common/validation"
)

// Number holds a JSON number or a numeric string as written by the client.
type Number struct {
	raw string
}

func NewNumber(s string) Number {
	return Number{raw: strings.TrimSpace(s)}
}

func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		n.raw = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		n.raw = strings.TrimSpace(s)
		return nil
	}
	n.raw = string(b)
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if n.raw == "" {
		return []byte("null"), nil
	}
	return json.Marshal(n.raw)
}

func (n Number) IsSet() bool {
	return n.raw != ""
}

func (n Number) Decimal() (decimal.Decimal, error) {
	return decimal.NewFromString(n.raw)
}

type CreateRequestDTO struct {
	RequestorName  string  `json:"requestorName" validate:"required,max=100"`
	RequestorEmail string  `json:"requestorEmail" validate:"required"`
	CCEmail        *string `json:"ccEmail,omitempty"`
	TeamName       string  `json:"teamName" validate:"required"`
	CategoryName   string  `json:"categoryName" validate:"required"`
	RequestDates   string  `json:"requestDates" validate:"required"`
	AcctNumber     string  `json:"acctNumber" validate:"required"`
	RequestName    string  `json:"requestName" validate:"required"`
	Currency       string  `json:"currency" validate:"required"`
	Amount         Number  `json:"amount"`
	Adjustment     *Number `json:"adjustment"`
	Description    *string `json:"description,omitempty"`
	UserID         Number  `json:"userId"`
}

// createInput is a validated and normalized CreateRequestDTO.
type createInput struct {
	requestorName  string
	requestorEmail string
	ccEmail        *string
	teamName       string
	categoryName   string
	requestDates   string
	acctNumber     string
	requestName    string
	currency       string
	amount         decimal.Decimal
	adjustment     int64
	description    *string
	userID         int64
}

func (dto *CreateRequestDTO) sanitize() {
	dto.RequestorName = validation.Sanitize(dto.RequestorName)
	dto.RequestorEmail = validation.Sanitize(dto.RequestorEmail)
	dto.CCEmail = validation.SanitizePtr(dto.CCEmail)
	dto.TeamName = validation.Sanitize(dto.TeamName)
	dto.CategoryName = validation.Sanitize(dto.CategoryName)
	dto.RequestDates = validation.Sanitize(dto.RequestDates)
	dto.AcctNumber = validation.Sanitize(dto.AcctNumber)
	dto.RequestName = validation.Sanitize(dto.RequestName)
	dto.Currency = strings.ToUpper(validation.Sanitize(dto.Currency))
	dto.Description = validation.SanitizePtr(dto.Description)
}

// Validate sanitizes dto in place and returns the normalized input.
func (dto *CreateRequestDTO) Validate() (*createInput, error) {
	dto.sanitize()

	if err := dto.checkRequired(); err != nil {
		return nil, err
	}

	if err := validation.Struct(dto); err != nil {
		return nil, err
	}

	in := &createInput{
		requestorName:  dto.RequestorName,
		requestorEmail: dto.RequestorEmail,
		ccEmail:        dto.CCEmail,
		teamName:       dto.TeamName,
		categoryName:   dto.CategoryName,
		acctNumber:     dto.AcctNumber,
		requestName:    dto.RequestName,
		currency:       dto.Currency,
		description:    dto.Description,
		userID:         DefaultUserID,
	}

	v := validation.NewValidator()
	v.Field("requestorEmail", dto.RequestorEmail).Email()
	v.Field("ccEmail", dto.CCEmail).Email()
	v.Field("amount", dto.Amount).Custom(func(interface{}) *internal.AppError {
		amount, err := dto.Amount.Decimal()
		if err != nil {
			return internal.NewValidationFieldError("amount", "Amount must be a valid number", internal.ErrCodeInvalidAmount)
		}
		if !amount.IsPositive() {
			return internal.NewValidationFieldError("amount", "Amount must be greater than 0", internal.ErrCodeInvalidAmount)
		}
		in.amount = amount
		return nil
	})
	v.Field("adjustment", dto.Adjustment).Custom(func(interface{}) *internal.AppError {
		adj, err := dto.Adjustment.Decimal()
		if err != nil || !adj.IsInteger() {
			return internal.NewValidationFieldError("adjustment", "Adjustment must be a whole number", internal.ErrCodeInvalidAdjustment)
		}
		in.adjustment = adj.IntPart()
		return nil
	})
	v.Field("userId", dto.UserID).Custom(func(interface{}) *internal.AppError {
		if !dto.UserID.IsSet() {
			return nil
		}
		id, err := dto.UserID.Decimal()
		if err != nil || !id.IsInteger() || id.IsNegative() {
			return internal.NewValidationFieldError("userId", "userId must be a positive whole number", internal.ErrCodeValidationFailed)
		}
		if !id.IsZero() {
			in.userID = id.IntPart()
		}
		return nil
	})

	dates, dateErr := ExpandDates(dto.RequestDates)
	in.requestDates = dates

	if err := validation.Merge(v.Validate(), asAppError(dateErr)); err != nil {
		return nil, err
	}
	return in, nil
}

func (dto *CreateRequestDTO) checkRequired() error {
	var missing []internal.ValidationError
	add := func(field string, absent bool) {
		if absent {
			missing = append(missing, internal.ValidationError{
				Field:   field,
				Message: field + " is required",
				Code:    string(internal.ErrCodeValidationFailed),
			})
		}
	}

	add("requestorName", dto.RequestorName == "")
	add("requestorEmail", dto.RequestorEmail == "")
	add("teamName", dto.TeamName == "")
	add("categoryName", dto.CategoryName == "")
	add("requestDates", dto.RequestDates == "")
	add("acctNumber", dto.AcctNumber == "")
	add("requestName", dto.RequestName == "")
	add("currency", dto.Currency == "")
	add("amount", !dto.Amount.IsSet())
	add("adjustment", dto.Adjustment == nil || !dto.Adjustment.IsSet())

	if len(missing) == 0 {
		return nil
	}
	return internal.NewValidationError("Missing required fields", internal.ErrCodeValidationFailed).
		WithDetails(internal.ValidationErrors{Errors: missing})
}

func asAppError(err error) *internal.AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := internal.IsAppError(err); ok {
		return appErr
	}
	return internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
}

// TransitionDTO is the body of a status update. ChangedBy and Notes are the
// legacy dashboard fields.
type TransitionDTO struct {
	Status        string  `json:"status"`
	AdminComments *string `json:"admin_comments,omitempty"`
	ChangedBy     string  `json:"changedBy,omitempty"`
	Notes         *string `json:"notes,omitempty"`
}

func (dto *TransitionDTO) Validate() (Status, error) {
	if strings.TrimSpace(dto.Status) == "" {
		return "", internal.NewValidationError("Status is required", internal.ErrCodeValidationFailed)
	}
	status, err := ParseStatus(dto.Status)
	if err != nil {
		return "", err
	}
	dto.AdminComments = validation.SanitizePtr(dto.AdminComments)
	dto.ChangedBy = validation.Sanitize(dto.ChangedBy)
	dto.Notes = validation.SanitizePtr(dto.Notes)
	return status, nil
}

type ListQuery struct {
	Username string
	IsAdmin  bool
}

type CreateResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	RequestID string `json:"requestId"`
}

type ListResponse struct {
	Success bool       `json:"success"`
	Data    []*Request `json:"data"`
}

type TransitionResponse struct {
	Success       bool    `json:"success"`
	Message       string  `json:"message"`
	AdminComments *string `json:"admin_comments"`
}
