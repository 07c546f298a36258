package payments

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mmynk/splitpay/internal/models"
)

// Platform rows carry loosely typed JSON in their data and idata columns,
// and the same fact (a phone, a name) lives under different keys depending
// on which integration wrote the row. Rows are therefore decoded into
// structpb.Struct and read through the path helpers below.

func decodeRecord(raw json.RawMessage) (*structpb.Struct, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	s := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, s); err != nil {
		return nil, false
	}
	return s, true
}

// valueAt walks path through nested objects.
func valueAt(s *structpb.Struct, path ...string) *structpb.Value {
	if s == nil || len(path) == 0 {
		return nil
	}
	v, ok := s.GetFields()[path[0]]
	if !ok {
		return nil
	}
	for _, key := range path[1:] {
		obj := v.GetStructValue()
		if obj == nil {
			return nil
		}
		if v, ok = obj.GetFields()[key]; !ok {
			return nil
		}
	}
	return v
}

// stringAt renders a string or number at path; anything else is "".
func stringAt(s *structpb.Struct, path ...string) string {
	v := valueAt(s, path...)
	switch k := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return strings.TrimSpace(k.StringValue)
	case *structpb.Value_NumberValue:
		return strconv.FormatFloat(k.NumberValue, 'f', -1, 64)
	}
	return ""
}

// firstString returns the first non-empty stringAt among paths.
func firstString(s *structpb.Struct, paths ...[]string) string {
	for _, p := range paths {
		if v := stringAt(s, p...); v != "" {
			return v
		}
	}
	return ""
}

// amountAt reads a number or numeric string; anything else is zero.
func amountAt(s *structpb.Struct, path ...string) (decimal.Decimal, bool) {
	v := valueAt(s, path...)
	switch k := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		return decimal.NewFromFloat(k.NumberValue), true
	case *structpb.Value_StringValue:
		if d, err := decimal.NewFromString(strings.TrimSpace(k.StringValue)); err == nil {
			return d, true
		}
	}
	return decimal.Zero, false
}

func firstAmount(s *structpb.Struct, paths ...[]string) decimal.Decimal {
	for _, p := range paths {
		if d, ok := amountAt(s, p...); ok {
			return d
		}
	}
	return decimal.Zero
}

// timeAt parses the timestamp formats Postgres emits through PostgREST.
func timeAt(s *structpb.Struct, path ...string) time.Time {
	raw := stringAt(s, path...)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05.999999-07"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}

func accountFromRecord(rec *structpb.Struct) models.ExternalAccount {
	return models.ExternalAccount{
		ID:      stringAt(rec, "id"),
		Slug:    stringAt(rec, "slug"),
		Name:    firstString(rec, []string{"data", "name"}, []string{"name"}),
		Goal:    firstAmount(rec, []string{"data", "total_goal"}, []string{"data", "total_amount"}, []string{"total_goal"}),
		Balance: firstAmount(rec, []string{"balance"}),
		Status:  stringAt(rec, "status"),
	}
}

func attemptFromRecord(rec *structpb.Struct) models.PaymentAttempt {
	created := timeAt(rec, "created_at")
	updated := timeAt(rec, "updated_at")
	if updated.IsZero() {
		updated = created
	}

	return models.PaymentAttempt{
		ID: stringAt(rec, "id"),
		PhoneNumber: firstString(rec,
			[]string{"idata", "customer_no"},
			[]string{"data", "phone"},
			[]string{"data", "customer_no"},
			[]string{"uid"},
		),
		Amount: firstAmount(rec,
			[]string{"amount"},
			[]string{"data", "amount"},
			[]string{"idata", "amount"},
		),
		RawStatus: stringAt(rec, "status"),
		BillReference: firstString(rec,
			[]string{"reference"},
			[]string{"data", "reference"},
			[]string{"idata", "reference"},
		),
		PayerName: firstString(rec,
			[]string{"data", "details", "customer_name"},
			[]string{"data", "customer_name"},
			[]string{"idata", "customer_name"},
			[]string{"idata", "full_name"},
		),
		CreatedAt: created,
		UpdatedAt: updated,
	}
}
