package websocket_test

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/plainws/websocket"
)

func ExampleAcceptKey() {
	token, err := websocket.AcceptKey("dGhlIHNhbXBsZSBub25jZQ==")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(token)
	// Output: s3pPLMBiTxaQ9kYGzzhZRbK+xOo=
}

func ExampleDecode() {
	m, err := websocket.Decode([]byte("\x81\x85\x37\xfa\x21\x3d\x7f\x9f\x4d\x51\x58"))
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(m.Ignored(), m.Text)

	m, err = websocket.Decode([]byte("\x89\x80\x01\x02\x03\x04"))
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(m.Ignored(), m.Opcode)
	// Output:
	// false Hello
	// true ping
}

func ExampleEncode() {
	b, err := websocket.Encode("Hello")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("% x\n", b)
	// Output: 81 05 48 65 6c 6c 6f
}

// This example starts a WebSocket echo server that lets each client
// send ten messages per second.
func ExampleServer() {
	s := &websocket.Server{
		Handler:      websocket.HandlerFunc(websocket.Echo),
		MessageRate:  rate.Every(time.Millisecond * 100),
		MessageBurst: 10,
	}
	err := http.ListenAndServe("localhost:8080", s)
	log.Fatal(err)
}
