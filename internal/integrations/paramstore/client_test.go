package paramstore

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/require"
)

// fakeAPI serves parameters from a map and records requested names.
type fakeAPI struct {
	values    map[string]string
	getErr    error
	requested []string
	decrypted []bool
}

func (f *fakeAPI) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.requested = append(f.requested, *in.Name)
	f.decrypted = append(f.decrypted, in.WithDecryption != nil && *in.WithDecryption)
	if f.getErr != nil {
		return nil, f.getErr
	}
	v, ok := f.values[*in.Name]
	if !ok {
		return &ssm.GetParameterOutput{Parameter: &types.Parameter{Name: in.Name}}, nil
	}
	return &ssm.GetParameterOutput{Parameter: &types.Parameter{
		Name: in.Name, Value: &v, Type: types.ParameterTypeSecureString,
	}}, nil
}

func mustNew(t *testing.T, api *fakeAPI) *Client {
	t.Helper()
	c, err := New(api, "/campus-relay/")
	require.NoError(t, err)
	return c
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, "/campus-relay")
	require.Error(t, err)
	require.Contains(t, err.Error(), "must not be nil")

	_, err = New(&fakeAPI{}, " / ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "prefix")
}

func TestTelegramToken_HappyPath(t *testing.T) {
	api := &fakeAPI{values: map[string]string{"/campus-relay/telegram-token": `{"token":" 123:abc "}`}}
	c := mustNew(t, api)

	tok, err := c.TelegramToken(context.Background())
	require.NoError(t, err)
	require.Equal(t, "123:abc", tok)
	require.Equal(t, []string{"/campus-relay/telegram-token"}, api.requested)
	require.Equal(t, []bool{true}, api.decrypted)
}

func TestInferenceToken_HappyPath(t *testing.T) {
	api := &fakeAPI{values: map[string]string{"/campus-relay/hf-token": `{"token":"hf_x"}`}}
	c := mustNew(t, api)

	tok, err := c.InferenceToken(context.Background())
	require.NoError(t, err)
	require.Equal(t, "hf_x", tok)
}

func TestToken_MissingTokenField(t *testing.T) {
	api := &fakeAPI{values: map[string]string{"/campus-relay/hf-token": `{"other":"value"}`}}
	_, err := mustNew(t, api).InferenceToken(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "hf-token is empty")
}

func TestToken_MalformedJSON(t *testing.T) {
	api := &fakeAPI{values: map[string]string{"/campus-relay/telegram-token": `{"broken`}}
	_, err := mustNew(t, api).TelegramToken(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "unmarshal")
}

func TestToken_MissingValue(t *testing.T) {
	_, err := mustNew(t, &fakeAPI{}).TelegramToken(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing value")
}

func TestGetParameter_ApiError(t *testing.T) {
	api := &fakeAPI{getErr: errors.New("boom")}
	_, err := mustNew(t, api).GetParameter(context.Background(), "p")
	require.Error(t, err)
	require.ErrorContains(t, err, "boom")
}

func TestGetParameter_ClientNotInitialized(t *testing.T) {
	_, err := (&Client{}).GetParameter(context.Background(), "p")
	require.Error(t, err)
	require.Contains(t, err.Error(), "not initialized")
}

func TestGetParameter_EmptyName(t *testing.T) {
	_, err := mustNew(t, &fakeAPI{}).GetParameter(context.Background(), "  ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "required")
}
