package lark

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkIm "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCreator struct {
	req  *larkIm.CreateMessageReq
	resp *larkIm.CreateMessageResp
	err  error
}

func (f *fakeCreator) Create(ctx context.Context, req *larkIm.CreateMessageReq, options ...larkcore.RequestOptionFunc) (*larkIm.CreateMessageResp, error) {
	f.req = req
	return f.resp, f.err
}

func newTestMessenger(f *fakeCreator) *Messenger {
	return &Messenger{messages: f, receiveIDType: "open_id", logger: zap.NewNop()}
}

func TestMessenger_SendMessage(t *testing.T) {
	f := &fakeCreator{resp: &larkIm.CreateMessageResp{
		Data: &larkIm.CreateMessageRespData{MessageId: larkcore.StringPtr("om_1")},
	}}
	m := newTestMessenger(f)

	err := m.SendMessage(context.Background(), "ou_123", `Trip "Paris" approved`)
	require.NoError(t, err)

	require.NotNil(t, f.req)
	require.NotNil(t, f.req.Body)
	assert.Equal(t, "ou_123", *f.req.Body.ReceiveId)
	assert.Equal(t, "text", *f.req.Body.MsgType)

	var content map[string]string
	require.NoError(t, json.Unmarshal([]byte(*f.req.Body.Content), &content))
	assert.Equal(t, `Trip "Paris" approved`, content["text"])
}

func TestMessenger_Failures(t *testing.T) {
	t.Run("empty receiver", func(t *testing.T) {
		assert.Error(t, newTestMessenger(&fakeCreator{}).SendMessage(context.Background(), "", "x"))
	})

	t.Run("empty content", func(t *testing.T) {
		assert.Error(t, newTestMessenger(&fakeCreator{}).SendMessage(context.Background(), "ou_1", ""))
	})

	t.Run("transport error", func(t *testing.T) {
		f := &fakeCreator{err: errors.New("dial tcp: timeout")}
		assert.Error(t, newTestMessenger(f).SendMessage(context.Background(), "ou_1", "x"))
	})

	t.Run("api error", func(t *testing.T) {
		f := &fakeCreator{resp: &larkIm.CreateMessageResp{CodeError: larkcore.CodeError{Code: 230001, Msg: "invalid receive_id"}}}
		err := newTestMessenger(f).SendMessage(context.Background(), "ou_1", "x")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "230001")
	})
}
