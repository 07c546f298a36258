package apiconnect

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mmynk/splitpay/pkg/api"
)

func TestCodec_PlainStruct(t *testing.T) {
	data, err := Codec{}.Marshal(&api.RequestPaymentResponse{AttemptID: "a1", Amount: decimal.NewFromInt(150)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"attempt_id":"a1","amount":"150"}`, string(data))

	var req api.CreateBillRequest
	require.NoError(t, Codec{}.Unmarshal([]byte(`{"name":"Dinner","goal":300,"participants":[{"name":"Amina","phone_number":"0712345678","target_amount":"100.50"}]}`), &req))
	assert.Equal(t, "Dinner", req.Name)
	assert.True(t, req.Goal.Equal(decimal.NewFromInt(300)))
	require.Len(t, req.Participants, 1)
	assert.True(t, req.Participants[0].TargetAmount.Equal(decimal.RequireFromString("100.50")))
}

func TestCodec_EmptyBody(t *testing.T) {
	var req api.ListBillsRequest
	assert.NoError(t, Codec{}.Unmarshal(nil, &req))
}

func TestCodec_ProtoMessage(t *testing.T) {
	s, err := structpb.NewStruct(map[string]any{"status": "SUCCESS"})
	require.NoError(t, err)

	data, err := Codec{}.Marshal(s)
	require.NoError(t, err)

	out := &structpb.Struct{}
	require.NoError(t, Codec{}.Unmarshal(data, out))
	assert.Equal(t, "SUCCESS", out.GetFields()["status"].GetStringValue())
}
