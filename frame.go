package main

import (
	"bytes"
	"encoding/json"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// Frame is one outbound message. Each wire encoding is produced at most once
// no matter how many recipients ask for it.
type Frame struct {
	msg interface{}

	jsonOnce sync.Once
	jsonData []byte
	jsonErr  error

	mpOnce sync.Once
	mpData []byte
	mpErr  error
}

// NewFrame wraps msg for fan-out
func NewFrame(msg interface{}) *Frame {
	return &Frame{msg: msg}
}

// Msg returns the wrapped message
func (f *Frame) Msg() interface{} {
	return f.msg
}

// IsState reports whether the frame carries a full state snapshot
func (f *Frame) IsState() bool {
	_, ok := f.msg.(StateMsg)
	return ok
}

// JSON returns the JSON encoding
func (f *Frame) JSON() ([]byte, error) {
	f.jsonOnce.Do(func() {
		f.jsonData, f.jsonErr = json.Marshal(f.msg)
	})
	return f.jsonData, f.jsonErr
}

// Msgpack returns the msgpack encoding, keyed by the json tag names
func (f *Frame) Msgpack() ([]byte, error) {
	f.mpOnce.Do(func() {
		var buf bytes.Buffer
		enc := msgpack.NewEncoder(&buf)
		enc.SetCustomStructTag("json")
		f.mpErr = enc.Encode(f.msg)
		f.mpData = buf.Bytes()
	})
	return f.mpData, f.mpErr
}

// decodeMsgpack is the inverse of Frame.Msgpack
func decodeMsgpack(data []byte, v interface{}) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	return dec.Decode(v)
}
