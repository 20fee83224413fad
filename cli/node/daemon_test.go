package node

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.dedis.ch/agrireg/cli"
	"go.dedis.ch/agrireg/internal/testing/fake"
	"golang.org/x/xerrors"
)

func TestSocketClient_Send(t *testing.T) {
	out := new(bytes.Buffer)
	received := make(chan []byte, 1)

	client := socketClient{
		out: out,
		dialFn: pipeDial(func(conn net.Conn) {
			buffer := make([]byte, 64)
			n, _ := conn.Read(buffer)
			received <- buffer[:n]

			enc := json.NewEncoder(conn)
			enc.Encode(event{Value: "0 SP2ALICE"})
			enc.Encode(event{Value: "1 SP3BOB"})
		}),
	}

	err := client.Send([]byte("\x03\x00{\"id\":0}"))
	require.NoError(t, err)
	require.Equal(t, "\x03\x00{\"id\":0}", string(<-received))
	require.Equal(t, "0 SP2ALICE\n1 SP3BOB\n", out.String())
}

func TestSocketClient_ErrorEvent_Send(t *testing.T) {
	out := new(bytes.Buffer)

	client := socketClient{
		out: out,
		dialFn: pipeDial(func(conn net.Conn) {
			conn.Read(make([]byte, 64))

			enc := json.NewEncoder(conn)
			enc.Encode(event{Value: "entry 0 updated"})
			enc.Encode(event{Err: true, Value: "command error: entry not found"})
		}),
	}

	err := client.Send([]byte("{}"))
	require.EqualError(t, err, "command error: entry not found")
	require.Equal(t, "entry 0 updated\n", out.String())
}

func TestSocketClient_Failures_Send(t *testing.T) {
	client := socketClient{
		dialFn: func(network, addr string, timeout time.Duration) (net.Conn, error) {
			return nil, fake.GetError()
		},
	}

	err := client.Send(nil)
	require.EqualError(t, err, fake.Err("couldn't open connection"))

	client.dialFn = func(network, addr string, timeout time.Duration) (net.Conn, error) {
		return badConn{}, nil
	}

	err = client.Send([]byte{1, 2, 3})
	require.EqualError(t, err, fake.Err("couldn't write to daemon"))

	client.dialFn = func(network, addr string, timeout time.Duration) (net.Conn, error) {
		return badConn{counter: fake.NewCounter(1)}, nil
	}

	err = client.Send([]byte{})
	require.EqualError(t, err, fake.Err("fail to decode event"))
}

func TestSocketDaemon_Listen(t *testing.T) {
	actions := &actionMap{}
	actions.Set(fakeAction{hash: "0x8a1f"})                        // id 0
	actions.Set(fakeAction{err: xerrors.New("entry already exists")}) // id 1

	daemon := &socketDaemon{
		socketpath:  filepath.Join(t.TempDir(), SocketName),
		actions:     actions,
		closing:     make(chan struct{}),
		readTimeout: 50 * time.Millisecond,
		listenFn:    net.Listen,
	}

	err := daemon.Listen()
	require.NoError(t, err)

	defer daemon.Close()

	out := new(bytes.Buffer)
	client := socketClient{
		socketpath:  daemon.socketpath,
		out:         out,
		dialTimeout: time.Second,
		dialFn:      net.DialTimeout,
	}

	err = client.Send(makeRequest(t, 0, FlagSet{"hash": "0x8a1f"}))
	require.NoError(t, err)
	require.Equal(t, "entry 0x8a1f registered\n", out.String())

	err = client.Send(makeRequest(t, 0, FlagSet{"hash": "0x8a20"}))
	require.EqualError(t, err, "command error: unexpected hash '0x8a20'")

	err = client.Send(makeRequest(t, 1, FlagSet{}))
	require.EqualError(t, err, "command error: entry already exists")

	err = client.Send(makeRequest(t, 7, FlagSet{}))
	require.EqualError(t, err, "unknown command '7'")

	err = client.Send([]byte{0x0, 0x0, 0x0})
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to decode flags")

	err = client.Send([]byte{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "stream corrupted: ")

	// A bare connection is how the CLI checks that the daemon is running.
	conn, err := net.DialTimeout("unix", daemon.socketpath, time.Second)
	require.NoError(t, err)
	require.NoError(t, conn.Close())
}

func TestSocketDaemon_RequestLogger_HandleConn(t *testing.T) {
	logs := &syncBuffer{}

	actions := &actionMap{}
	actions.Set(fakeAction{hash: "0x8a1f"})

	daemon := &socketDaemon{
		logger:      zerolog.New(logs).Level(zerolog.DebugLevel),
		actions:     actions,
		closing:     make(chan struct{}),
		readTimeout: time.Second,
	}

	client := socketClient{
		out:    new(bytes.Buffer),
		dialFn: pipeDial(daemon.handleConn),
	}

	require.NoError(t, client.Send(makeRequest(t, 0, FlagSet{"hash": "0x8a1f"})))
	require.Error(t, client.Send(makeRequest(t, 3, FlagSet{})))

	entries := readLogs(t, logs)

	// Each connection logs the received command, and the failed one also logs
	// the error sent back. Every line carries the request of its connection.
	require.Len(t, entries, 3)
	require.Equal(t, "received command on the daemon", entries[0]["message"])
	require.Equal(t, "received command on the daemon", entries[1]["message"])
	require.Equal(t, "sending error to client", entries[2]["message"])
	require.Equal(t, "unknown command '3'", entries[2]["error"])

	first, ok := entries[0]["request"].(string)
	require.True(t, ok)
	require.Len(t, first, 20)

	require.NotEqual(t, first, entries[1]["request"])
	require.Equal(t, entries[1]["request"], entries[2]["request"])
	require.Equal(t, 3.0, entries[1]["action"])
}

func TestSocketDaemon_FailBindSocket_Listen(t *testing.T) {
	daemon := &socketDaemon{
		listenFn: func(network, addr string) (net.Listener, error) {
			return nil, fake.GetError()
		},
	}

	err := daemon.Listen()
	require.EqualError(t, err, fake.Err("couldn't bind socket"))
}

func TestSocketDaemon_ConnClosedFromClient_HandleConn(t *testing.T) {
	logger, check := fake.CheckLog("connection to daemon has error")

	daemon := &socketDaemon{
		logger:      logger,
		actions:     &actionMap{},
		closing:     make(chan struct{}),
		readTimeout: 50 * time.Millisecond,
	}

	daemon.handleConn(badConn{})

	check(t)
}

func TestClientWriter_Write(t *testing.T) {
	buffer := new(bytes.Buffer)

	w := newClientWriter(buffer)

	n, err := fmt.Fprintf(w, "entry %d updated", 0)
	require.NoError(t, err)
	require.Equal(t, 15, n)
	require.Equal(t, `{"Err":false,"Value":"entry 0 updated"}`+"\n", buffer.String())

	w = newClientWriter(fake.BadWriter{})

	n, err = w.Write([]byte("0x8a1f"))
	require.Equal(t, 0, n)
	require.EqualError(t, err, fake.Err("while packing data"))
}

func TestSocketFactory_FromContext(t *testing.T) {
	factory := socketFactory{actions: &actionMap{}}
	ctx := fakeContext{path: "agrireg"}

	client, err := factory.ClientFromContext(ctx)
	require.NoError(t, err)
	require.Equal(t, filepath.Join("agrireg", SocketName),
		client.(socketClient).socketpath)

	daemon, err := factory.DaemonFromContext(ctx)
	require.NoError(t, err)
	require.Equal(t, filepath.Join("agrireg", SocketName),
		daemon.(*socketDaemon).socketpath)
	require.Equal(t, ioTimeout, daemon.(*socketDaemon).readTimeout)
}

// -----------------------------------------------------------------------------
// Utility functions

// pipeDial returns a dial function that gives the client one end of an
// in-memory connection while the handler serves the other end.
func pipeDial(handle func(net.Conn)) func(string, string, time.Duration) (net.Conn, error) {
	return func(network, addr string, timeout time.Duration) (net.Conn, error) {
		server, client := net.Pipe()

		go func() {
			defer server.Close()

			handle(server)
		}()

		return client, nil
	}
}

func makeRequest(t *testing.T, id byte, fset FlagSet) []byte {
	buf, err := json.Marshal(fset)
	require.NoError(t, err)

	return append([]byte{id, 0x0}, buf...)
}

func readLogs(t *testing.T, logs *syncBuffer) []map[string]interface{} {
	var entries []map[string]interface{}

	scanner := bufio.NewScanner(strings.NewReader(logs.String()))
	for scanner.Scan() {
		entry := make(map[string]interface{})
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))

		entries = append(entries, entry)
	}

	return entries
}

type syncBuffer struct {
	sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(data []byte) (int, error) {
	b.Lock()
	defer b.Unlock()

	return b.buf.Write(data)
}

func (b *syncBuffer) String() string {
	b.Lock()
	defer b.Unlock()

	return b.buf.String()
}

type fakeInitializer struct {
	err     error
	errStop error
}

func (c fakeInitializer) SetCommands(Builder) {}

func (c fakeInitializer) OnStart(cli.Flags, Injector) error {
	return c.err
}

func (c fakeInitializer) OnStop(Injector) error {
	return c.errStop
}

type fakeClient struct {
	err   error
	calls *fake.Call
}

func (c fakeClient) Send(data []byte) error {
	c.calls.Add(data)
	return c.err
}

type fakeDaemon struct {
	Daemon
	err error
}

func (d fakeDaemon) Listen() error {
	return d.err
}

func (d fakeDaemon) Close() error {
	return nil
}

type fakeFactory struct {
	DaemonFactory
	err       error
	errClient error
	errDaemon error
	calls     *fake.Call
}

func (f fakeFactory) ClientFromContext(cli.Flags) (Client, error) {
	return fakeClient{err: f.errClient, calls: f.calls}, f.err
}

func (f fakeFactory) DaemonFromContext(cli.Flags) (Daemon, error) {
	return fakeDaemon{err: f.errDaemon}, f.err
}

// fakeAction registers the entry of the hash flag when it matches the
// expected one.
type fakeAction struct {
	err  error
	hash string
}

func (a fakeAction) Execute(req Context) error {
	if a.err != nil {
		return a.err
	}

	hash := req.Flags.String("hash")
	if hash != a.hash {
		return xerrors.Errorf("unexpected hash '%s'", hash)
	}

	fmt.Fprintf(req.Out, "entry %s registered", hash)

	return nil
}

type fakeContext struct {
	cli.Flags
	path string
}

func (ctx fakeContext) Path(name string) string {
	return ctx.path
}

type badConn struct {
	net.Conn

	counter *fake.Counter
}

func (conn badConn) Read(data []byte) (int, error) {
	if !conn.counter.Done() {
		conn.counter.Decrease()
		return len(data), nil
	}

	return 0, fake.GetError()
}

func (conn badConn) Write(data []byte) (int, error) {
	if !conn.counter.Done() {
		conn.counter.Decrease()
		return len(data), nil
	}

	return 0, fake.GetError()
}

func (badConn) SetReadDeadline(t time.Time) error {
	return nil
}

func (badConn) Close() error {
	return nil
}
