package validation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payer struct {
	Name   string          `json:"name" validate:"required"`
	Phone  string          `json:"phone_number" validate:"required,ke_phone"`
	Amount decimal.Decimal `json:"amount" validate:"gte=0"`
}

type bill struct {
	Name     string          `json:"name" validate:"required,max=10"`
	Goal     decimal.Decimal `json:"goal" validate:"gt=0"`
	Payers   []payer         `json:"participants" validate:"required,min=1,dive"`
	Internal string          `json:"-"`
}

func TestStruct_Valid(t *testing.T) {
	b := bill{
		Name: "Dinner",
		Goal: decimal.NewFromInt(300),
		Payers: []payer{
			{Name: "Amina", Phone: "0712345678", Amount: decimal.NewFromInt(100)},
			{Name: "Brian", Phone: "+254 712 345 679", Amount: decimal.Zero},
		},
	}
	assert.NoError(t, Struct(b))
}

func TestStruct_Errors(t *testing.T) {
	tests := []struct {
		name string
		bill bill
		want string
	}{
		{
			name: "zero goal",
			bill: bill{Name: "x", Goal: decimal.Zero, Payers: []payer{{Name: "a", Phone: "0712345678"}}},
			want: "goal must be greater than 0",
		},
		{
			name: "negative share",
			bill: bill{Name: "x", Goal: decimal.NewFromInt(1), Payers: []payer{{Name: "a", Phone: "0712345678", Amount: decimal.NewFromInt(-1)}}},
			want: "participants[0].amount must be at least 0",
		},
		{
			name: "bad phone",
			bill: bill{Name: "x", Goal: decimal.NewFromInt(1), Payers: []payer{{Name: "a", Phone: "12345"}}},
			want: "participants[0].phone_number must be a valid phone number",
		},
		{
			name: "no participants",
			bill: bill{Name: "x", Goal: decimal.NewFromInt(1)},
			want: "participants is required",
		},
		{
			name: "long name",
			bill: bill{Name: "a much too long name", Goal: decimal.NewFromInt(1), Payers: []payer{{Name: "a", Phone: "0712345678"}}},
			want: "name must have at most 10 characters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.bill)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestStruct_MultipleFields(t *testing.T) {
	err := Struct(bill{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name is required")
	assert.Contains(t, err.Error(), "goal must be greater than 0")
}

func TestStruct_DecimalComparedByValue(t *testing.T) {
	b := bill{
		Name:   "Chai",
		Goal:   decimal.RequireFromString("0.50"),
		Payers: []payer{{Name: "a", Phone: "0712345678", Amount: decimal.RequireFromString("0.50")}},
	}
	assert.NoError(t, Struct(b))

	b.Payers[0].Amount = decimal.RequireFromString("-0.01")
	err := Struct(b)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "participants[0].amount must be at least 0")
}
