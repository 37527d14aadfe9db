package bridge

import (
	"bytes"
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/enbility/zeroconf/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackwaller57/simpa/internal/telemetry"
)

func TestFraming_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewFrameWriter(&buf)
	require.NoError(t, w.WriteFrame([]byte("first")))
	require.NoError(t, w.WriteFrame([]byte("second")))

	r := NewFrameReader(&buf)
	got, err := r.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, "first", string(got))
	got, err = r.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))

	_, err = r.ReadFrame()
	assert.ErrorIs(t, err, io.EOF)
}

func TestFraming_Limits(t *testing.T) {
	w := NewFrameWriter(io.Discard)
	assert.ErrorIs(t, w.WriteFrame(nil), ErrMessageEmpty)
	assert.ErrorIs(t, w.WriteFrame(make([]byte, DefaultMaxMessageSize+1)), ErrMessageTooLarge)
	assert.NoError(t, w.WriteFrame(make([]byte, DefaultMaxMessageSize)))

	oversized := []byte{0x00, 0x01, 0x00, 0x01}
	_, err := NewFrameReader(bytes.NewReader(oversized)).ReadFrame()
	assert.ErrorIs(t, err, ErrMessageTooLarge)

	_, err = NewFrameReader(bytes.NewReader([]byte{0, 0, 0, 0})).ReadFrame()
	assert.ErrorIs(t, err, ErrMessageEmpty)
}

func TestFraming_Truncated(t *testing.T) {
	_, err := NewFrameReader(bytes.NewReader([]byte{0, 0})).ReadFrame()
	assert.ErrorIs(t, err, ErrFrameTruncated)

	_, err = NewFrameReader(bytes.NewReader([]byte{0, 0, 0, 8, 1, 2, 3})).ReadFrame()
	assert.ErrorIs(t, err, ErrFrameTruncated)
}

func TestFrame_TelemetryMapping(t *testing.T) {
	msgs := []telemetry.Message{
		telemetry.Opened{},
		telemetry.Record(telemetry.TagAltitude, 10500),
		telemetry.Record(telemetry.TagBeacon, 1),
		telemetry.DiscreteEvent{ID: telemetry.EventToggleJetway},
		telemetry.Exception{Code: 7},
		telemetry.Closed{},
	}
	for _, msg := range msgs {
		data, err := EncodeFrame(FrameOf(msg))
		require.NoError(t, err)
		f, err := DecodeFrame(data)
		require.NoError(t, err)
		got, ok := f.Telemetry()
		require.True(t, ok, f.Kind.String())
		assert.Equal(t, msg, got)
	}

	_, ok := Frame{Kind: KindAck}.Telemetry()
	assert.False(t, ok)
}

func TestDecodeFrame_Malformed(t *testing.T) {
	_, err := DecodeFrame([]byte{0xff, 0x00})
	assert.ErrorIs(t, err, ErrMalformedFrame)

	empty, err := encMode.Marshal(map[int]int{})
	require.NoError(t, err)
	_, err = DecodeFrame(empty)
	assert.ErrorIs(t, err, ErrMalformedFrame)
}

func startServer(t *testing.T, script []Cue, opts ...ServerOption) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		NewServer(script, append([]ServerOption{WithSpeed(0)}, opts...)...).Serve(ctx, ln)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return ln.Addr().String()
}

func TestClientServer_Feed(t *testing.T) {
	addr := startServer(t, []Cue{
		{Msg: telemetry.Opened{}},
		{After: time.Second, Msg: telemetry.Record(telemetry.TagAltitude, 5000)},
		{Msg: telemetry.DiscreteEvent{ID: telemetry.EventToggleJetway}},
	})
	ctx := context.Background()

	c := NewClient(ClientConfig{Addr: addr, Attempts: 1})
	require.NoError(t, c.Connect(ctx))
	defer c.Close()
	require.NoError(t, c.Register(ctx, telemetry.Definitions()))

	var got []telemetry.Message
	for {
		msg, err := c.Next(ctx)
		if err == telemetry.ErrClosed {
			break
		}
		require.NoError(t, err)
		got = append(got, msg)
	}

	assert.Equal(t, []telemetry.Message{
		telemetry.Opened{},
		telemetry.Record(telemetry.TagAltitude, 5000),
		telemetry.DiscreteEvent{ID: telemetry.EventToggleJetway},
		telemetry.Closed{},
	}, got)
}

func TestClient_RegisterRejected(t *testing.T) {
	addr := startServer(t, nil)
	ctx := context.Background()

	c := NewClient(ClientConfig{Addr: addr, Attempts: 1})
	require.NoError(t, c.Connect(ctx))
	defer c.Close()

	err := c.Register(ctx, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no definitions")
}

func TestClient_RegisterTimeout(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		nc, err := ln.Accept()
		if err != nil {
			return
		}
		defer nc.Close()
		io.Copy(io.Discard, nc) // never answers
	}()

	c := NewClient(ClientConfig{Addr: ln.Addr().String(), Attempts: 1})
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.Error(t, c.Register(ctx, telemetry.Definitions()))
}

func TestClient_ConnectRetriesThenFails(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	c := NewClient(ClientConfig{Addr: addr, Attempts: 3, RetryDelay: time.Millisecond})
	err = c.Connect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect after 3 attempts")
}

func TestClient_NextAfterClose(t *testing.T) {
	c := NewClient(ClientConfig{Addr: "127.0.0.1:1"})
	require.NoError(t, c.Close())
	_, err := c.Next(context.Background())
	assert.ErrorIs(t, err, telemetry.ErrClosed)
}

func TestClient_NextHonoursContext(t *testing.T) {
	addr := startServer(t, []Cue{{After: time.Hour, Msg: telemetry.Opened{}}}, WithSpeed(1))
	c := NewClient(ClientConfig{Addr: addr, Attempts: 1})
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()
	require.NoError(t, c.Register(context.Background(), telemetry.Definitions()))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := c.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEntryAddr(t *testing.T) {
	e := &zeroconf.ServiceEntry{ServiceRecord: zeroconf.ServiceRecord{Instance: "sim", Service: ServiceType, Domain: Domain}}
	e.Port = 5800
	_, ok := entryAddr(e)
	assert.False(t, ok, "no address yet")

	e.HostName = "sim-pc.local."
	addr, ok := entryAddr(e)
	require.True(t, ok)
	assert.Equal(t, "sim-pc.local.:5800", addr)

	e.AddrIPv6 = []net.IP{net.ParseIP("fe80::1")}
	addr, _ = entryAddr(e)
	assert.Equal(t, "[fe80::1]:5800", addr)

	e.AddrIPv4 = []net.IP{net.ParseIP("192.168.1.20")}
	addr, _ = entryAddr(e)
	assert.Equal(t, "192.168.1.20:5800", addr)

	_, ok = entryAddr(nil)
	assert.False(t, ok)
}
