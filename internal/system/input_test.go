package system

import (
	"bufio"
	"bytes"
	stdnet "net"
	"strings"
	"testing"
	"time"

	"github.com/l1jgo/eventcopy/internal/handler"
	"github.com/l1jgo/eventcopy/internal/net"
	"go.uber.org/zap"
	"gotest.tools/v3/assert"
	"gotest.tools/v3/poll"
)

func TestInputSystemDispatchesCommands(t *testing.T) {
	h := newHarness(t, harnessOptions{}, standardMaps(t)...)
	m := h.enter(t, 1)

	var out bytes.Buffer
	lines := make(chan string, 4)
	deps := &handler.Deps{Log: zap.NewNop(), World: h.ws, Saves: h.saves, Out: &out}
	in := NewInputSystem(lines, nil, nil, deps, 2, zap.NewNop())

	lines <- ".copy 2 1 3 3"
	lines <- ".copy 2 5 4 4"
	lines <- ".copy 3 1 5 5"
	in.Update(tickRate)
	assert.Equal(t, m.Queue().Len(), 2)

	in.Update(tickRate)
	assert.Equal(t, m.Queue().Len(), 3)

	close(lines)
	in.Update(tickRate)
	in.Update(tickRate)
}

func TestInputSystemRemoteSession(t *testing.T) {
	h := newHarness(t, harnessOptions{}, standardMaps(t)...)
	m := h.enter(t, 1)

	srv, err := net.NewServer(net.Options{Addr: "127.0.0.1:0", InQueue: 8, OutQueue: 8}, zap.NewNop())
	assert.NilError(t, err)
	go srv.AcceptLoop()
	defer srv.Shutdown()

	store := net.NewSessionStore()
	deps := &handler.Deps{Log: zap.NewNop(), World: h.ws, Saves: h.saves}
	in := NewInputSystem(nil, srv, store, deps, 4, zap.NewNop())
	out := NewOutputSystem(store)

	conn, err := stdnet.Dial("tcp", srv.Addr().String())
	assert.NilError(t, err)
	defer conn.Close()
	r := bufio.NewReader(conn)
	_, err = r.ReadString('\n') // greeting
	assert.NilError(t, err)

	_, err = conn.Write([]byte(".copy 2 1 3 3\n"))
	assert.NilError(t, err)

	poll.WaitOn(t, func(poll.LogT) poll.Result {
		in.Update(tickRate)
		out.Update(tickRate)
		if m.Queue().Len() == 1 {
			return poll.Success()
		}
		return poll.Continue("waiting for command")
	}, poll.WithDelay(time.Millisecond), poll.WithTimeout(2*time.Second))

	assert.NilError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	reply, err := r.ReadString('\n')
	assert.NilError(t, err)
	assert.Assert(t, strings.Contains(reply, "已排入複製佇列"))

	conn.Close()
	poll.WaitOn(t, func(poll.LogT) poll.Result {
		in.Update(tickRate)
		if store.Count() == 0 {
			return poll.Success()
		}
		return poll.Continue("waiting for disconnect")
	}, poll.WithDelay(time.Millisecond), poll.WithTimeout(2*time.Second))
}
