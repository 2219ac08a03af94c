package common

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadRequestArray(t *testing.T) {
	r := NewReader(strings.NewReader("*2\r\n$3\r\nGET\r\n$3\r\nfoo\r\n"))
	v, err := r.ReadRequest()
	require.NoError(t, err)
	require.Equal(t, ARRAY, v.Typ)
	require.Equal(t, []string{"GET", "foo"}, v.BulkStrings())
}

func TestReadRequestInline(t *testing.T) {
	r := NewReader(strings.NewReader("PING hello\r\n"))
	v, err := r.ReadRequest()
	require.NoError(t, err)
	require.Equal(t, []string{"PING", "hello"}, v.BulkStrings())
}

func TestReadRequestNilArray(t *testing.T) {
	r := NewReader(strings.NewReader("*-1\r\n"))
	v, err := r.ReadRequest()
	require.NoError(t, err)
	require.Equal(t, NULL, v.Typ)
	require.True(t, v.IsNullArray)
}

func TestReadRequestProtocolError(t *testing.T) {
	r := NewReader(strings.NewReader("*2\r\n$abc\r\n"))
	_, err := r.ReadRequest()
	require.Error(t, err)
}

func TestReadRequestBulkLengthCap(t *testing.T) {
	r := NewReader(strings.NewReader("*1\r\n$999999999999\r\n"))
	_, err := r.ReadRequest()
	require.ErrorIs(t, err, ErrProtocol)
}

func TestEncodeAllTypes(t *testing.T) {
	cases := []struct {
		name string
		v    *Value
		want string
	}{
		{"string", NewStringP("OK"), "+OK\r\n"},
		{"bulk", NewBulkP("hi"), "$2\r\nhi\r\n"},
		{"int", NewIntP(42), ":42\r\n"},
		{"error", NewErrorP("ERR bad"), "-ERR bad\r\n"},
		{"nilbulk", NilP(), "$-1\r\n"},
		{"nilarray", NilArrayP(), "*-1\r\n"},
		{"array", NewArrayP([]Value{NewBulk("a"), NewInt(1)}), "*2\r\n$1\r\na\r\n:1\r\n"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			require.Equal(t, c.want, Encode(c.v))
		})
	}
}

func TestWriterFlushesBufferedReply(t *testing.T) {
	var b strings.Builder
	w := NewWriter(&b)
	require.NoError(t, w.Write(NewStringP("PONG")))
	require.NoError(t, w.Flush())
	require.Equal(t, "+PONG\r\n", b.String())
}
