/*
file: goredis/internal/server/server.go

Server owns the TCP listeners and the per-connection accept loop,
generalized from the teacher's cmd/main.go (net.Listen + handleOneConnection)
into a reusable type: main.go builds one Server and calls Run, instead
of main.go itself owning the listener slice and wait group.
*/
package server

import (
	"net"
	"sync"

	"goredis/internal/common"
	"goredis/internal/dispatch"
	"goredis/internal/pubsub"
	"goredis/internal/store"
)

type Server struct {
	App  *common.AppState
	KS   *store.Keyspace
	Hub  *pubsub.Hub
	Snap dispatch.Snapshotter
	Disp *dispatch.Dispatcher

	mu        sync.Mutex
	listeners []net.Listener
	wg        sync.WaitGroup
}

func New(app *common.AppState, ks *store.Keyspace, hub *pubsub.Hub, snap dispatch.Snapshotter) *Server {
	return &Server{
		App:  app,
		KS:   ks,
		Hub:  hub,
		Snap: snap,
		Disp: dispatch.NewDispatcher(),
	}
}

// Listen opens a TCP listener on addr and registers it to be served by
// Run. Safe to call multiple times for multiple bind addresses.
func (s *Server) Listen(addr string) (net.Listener, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()
	return l, nil
}

// Run accepts connections on every registered listener until they are
// closed (by Close or by the OS), then waits for in-flight connections
// to finish.
func (s *Server) Run() {
	s.mu.Lock()
	listeners := append([]net.Listener(nil), s.listeners...)
	s.mu.Unlock()

	for _, l := range listeners {
		s.wg.Add(1)
		go func(ln net.Listener) {
			defer s.wg.Done()
			s.acceptLoop(ln)
		}(l)
	}
	s.wg.Wait()
}

func (s *Server) acceptLoop(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			s.App.Logger.Info("listener on %s closed", ln.Addr())
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveConn(conn)
		}()
	}
}

// Close stops every registered listener; in-flight connections are
// left running for the caller to close separately (AppState.CloseAllConnections).
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.listeners {
		l.Close()
	}
}

// serveConn is one connection's lifetime: accept bookkeeping, a
// read-dispatch-write loop, and cleanup, grounded on the teacher's
// handleOneConnection in cmd/main.go.
func (s *Server) serveConn(conn net.Conn) {
	s.App.Stats.IncrConnections()
	s.App.AddConn(conn)
	defer s.App.RemoveConn(conn)
	defer conn.Close()

	client := common.NewClient(conn)
	reader := common.NewReader(conn)

	s.App.Logger.Info("accepted connection from %s", conn.RemoteAddr())

	defer func() {
		s.cleanupClient(client)
		s.App.Logger.Info("closed connection from %s", conn.RemoteAddr())
	}()

	for {
		req, err := reader.ReadRequest()
		if err != nil {
			return
		}
		if len(req.Arr) == 0 {
			continue
		}

		ctx := &dispatch.Ctx{
			App:      s.App,
			KS:       s.KS,
			Hub:      s.Hub,
			Snap:     s.Snap,
			Client:   client,
			Registry: s.Disp.Registry,
			Req:      &req,
		}

		reply := s.runOne(ctx)
		if reply == nil {
			continue
		}
		if err := client.WriteReply(reply); err != nil {
			return
		}
	}
}

// runOne invokes the dispatcher and translates its control-flow
// panics (QUIT, SHUTDOWN) into connection/process actions; any other
// panic was already converted to an error reply inside Dispatcher.Run.
func (s *Server) runOne(ctx *dispatch.Ctx) (reply *common.Value) {
	quit := false
	shutdown := false

	func() {
		defer func() {
			if r := recover(); r == nil {
				return
			} else {
				switch r.(type) {
				case dispatch.QuitSignal:
					quit = true
				case dispatch.ShutdownSignal:
					shutdown = true
				default:
					panic(r)
				}
			}
		}()
		reply = s.Disp.Run(ctx)
	}()

	if quit {
		ctx.Client.Conn.Close()
		return nil
	}
	if shutdown {
		s.App.Logger.Info("shutdown requested, closing all connections")
		s.Close()
		s.App.CloseAllConnections()
	}
	return reply
}

func (s *Server) cleanupClient(c *common.Client) {
	s.Hub.UnsubscribeAllChannels(c)
	s.Hub.PUnsubscribeAllPatterns(c)
	s.App.RemoveMonitor(c)
}
