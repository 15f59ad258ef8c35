// Package wspb provides helpers for protobuf messages.
//
// Messages travel as text frames holding the protobuf JSON mapping.
package wspb

import (
	"context"

	"github.com/golang/protobuf/jsonpb"
	"github.com/golang/protobuf/proto"
	"golang.org/x/xerrors"

	"github.com/plainws/websocket"
)

// Read reads the next text message from c and unmarshals it into v.
// Ignored frames in between are skipped. Unknown fields are rejected.
func Read(ctx context.Context, c *websocket.Conn, v proto.Message) error {
	err := read(ctx, c, v)
	if err != nil {
		return xerrors.Errorf("failed to read protobuf: %w", err)
	}
	return nil
}

func read(ctx context.Context, c *websocket.Conn, v proto.Message) error {
	for {
		m, err := c.Read(ctx)
		if err != nil {
			return err
		}
		if m.Ignored() {
			continue
		}

		err = jsonpb.UnmarshalString(m.Text, v)
		if err != nil {
			return xerrors.Errorf("failed to unmarshal protobuf: %w", err)
		}
		return nil
	}
}

// Write writes the protobuf message v to c as a text message.
func Write(ctx context.Context, c *websocket.Conn, v proto.Message) error {
	err := write(ctx, c, v)
	if err != nil {
		return xerrors.Errorf("failed to write protobuf: %w", err)
	}
	return nil
}

func write(ctx context.Context, c *websocket.Conn, v proto.Message) error {
	var m jsonpb.Marshaler
	s, err := m.MarshalToString(v)
	if err != nil {
		return xerrors.Errorf("failed to marshal protobuf: %w", err)
	}
	return c.Write(ctx, s)
}
