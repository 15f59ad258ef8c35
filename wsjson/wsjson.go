// Package wsjson provides helpers for reading and writing JSON messages.
package wsjson

import (
	"context"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/xerrors"

	"github.com/plainws/websocket"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Read reads the next text message from c and decodes it as JSON into v.
// Ignored frames in between are skipped.
func Read(ctx context.Context, c *websocket.Conn, v interface{}) error {
	err := read(ctx, c, v)
	if err != nil {
		return xerrors.Errorf("failed to read JSON message: %w", err)
	}
	return nil
}

func read(ctx context.Context, c *websocket.Conn, v interface{}) error {
	for {
		m, err := c.Read(ctx)
		if err != nil {
			return err
		}
		if m.Ignored() {
			continue
		}

		err = json.UnmarshalFromString(m.Text, v)
		if err != nil {
			return xerrors.Errorf("failed to unmarshal JSON: %w", err)
		}
		return nil
	}
}

// Write writes the JSON encoding of v to c as a text message.
func Write(ctx context.Context, c *websocket.Conn, v interface{}) error {
	err := write(ctx, c, v)
	if err != nil {
		return xerrors.Errorf("failed to write JSON message: %w", err)
	}
	return nil
}

func write(ctx context.Context, c *websocket.Conn, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return xerrors.Errorf("failed to marshal JSON: %w", err)
	}
	// Sent as []byte so the payload is not serialized a second time.
	return c.Write(ctx, b)
}
