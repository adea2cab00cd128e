//go:build unit

package extractor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func TestBytesCopiesInput(t *testing.T) {
	raw := []byte("hello")

	out, err := Bytes().Extract(raw)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), out)

	raw[0] = 'x'
	assert.Equal(t, []byte("hello"), out, "extracted task must not alias the record buffer")
}

func TestString(t *testing.T) {
	out, err := String().Extract([]byte("task"))
	require.NoError(t, err)
	assert.Equal(t, "task", out)
}

func TestJSON(t *testing.T) {
	type orderTask struct {
		ID    string `json:"id"`
		Count int    `json:"count"`
	}

	out, err := JSON[orderTask]().Extract([]byte(`{"id":"o-1","count":3}`))
	require.NoError(t, err)
	assert.Equal(t, orderTask{ID: "o-1", Count: 3}, out)
}

func TestJSONInvalidInput(t *testing.T) {
	type orderTask struct {
		ID string `json:"id"`
	}

	_, err := JSON[orderTask]().Extract([]byte(`{not json`))
	require.Error(t, err)

	ee, ok := AsError(err)
	require.True(t, ok, "extraction failures carry the extractor error type")
	assert.Error(t, ee.Cause)
}

func TestProtobuf(t *testing.T) {
	src := wrapperspb.String("payload")
	raw, err := proto.Marshal(src)
	require.NoError(t, err)

	out, err := Protobuf[*wrapperspb.StringValue]().Extract(raw)
	require.NoError(t, err)
	assert.Equal(t, "payload", out.GetValue())
}

func TestProtobufInvalidInput(t *testing.T) {
	_, err := Protobuf[*wrapperspb.StringValue]().Extract([]byte{0xff, 0xff, 0xff})
	require.Error(t, err)

	_, ok := AsError(err)
	assert.True(t, ok)
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("bad bytes")
	err := NewError(cause)

	assert.ErrorIs(t, err, cause)
	ee, ok := AsError(err)
	require.True(t, ok)
	assert.Same(t, cause, ee.Cause)
}

func TestFuncAdapter(t *testing.T) {
	f := Func[int](func(raw []byte) (int, error) { return len(raw), nil })

	n, err := f.Extract([]byte("abcd"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}
