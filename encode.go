package websocket

import (
	"bytes"
	"encoding"
	"fmt"

	"github.com/golang/protobuf/jsonpb"
	"github.com/golang/protobuf/proto"
	jsoniter "github.com/json-iterator/go"
	"golang.org/x/xerrors"

	"github.com/plainws/websocket/internal/bpool"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Encode serializes v and frames it as a single unmasked server text frame
// with FIN set.
//
// Strings and byte slices are sent as is. Protobuf messages are rendered
// with jsonpb, encoding.TextMarshaler values with MarshalText, errors with
// Error and fmt.Stringer values with String. Anything else is encoded as
// JSON, so numbers and booleans become their literal text.
//
// The returned buffer holds exactly the header followed by the payload and
// can be written to the connection verbatim.
func Encode(v interface{}) ([]byte, error) {
	b, _, err := encode(v)
	return b, err
}

// encode is Encode that also reports the payload length.
func encode(v interface{}) (_ []byte, n int, err error) {
	buf := bpool.Get()
	defer bpool.Put(buf)

	err = serialize(buf, v)
	if err != nil {
		return nil, 0, xerrors.Errorf("failed to serialize %T: %w", v, err)
	}
	return encodeText(buf.Bytes()), buf.Len(), nil
}

// encodeText frames p as a text frame.
func encodeText(p []byte) []byte {
	h := header{
		fin:           true,
		opcode:        OpText,
		payloadLength: int64(len(p)),
	}
	b := make([]byte, 0, headerSize(h.payloadLength, false)+len(p))
	b = appendHeader(b, h)
	return append(b, p...)
}

func serialize(w *bytes.Buffer, v interface{}) error {
	switch v := v.(type) {
	case string:
		w.WriteString(v)
	case []byte:
		w.Write(v)
	case proto.Message:
		var m jsonpb.Marshaler
		return m.Marshal(w, v)
	case encoding.TextMarshaler:
		b, err := v.MarshalText()
		if err != nil {
			return err
		}
		w.Write(b)
	case error:
		w.WriteString(v.Error())
	case fmt.Stringer:
		w.WriteString(v.String())
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		w.Write(b)
	}
	return nil
}
