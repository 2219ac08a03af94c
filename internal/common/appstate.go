/*
file: goredis/internal/common/appstate.go
*/
package common

import (
	"net"
	"sync"
	"time"
)

type GeneralStats struct {
	mu sync.Mutex

	TotalConnectionsReceived int64
	TotalCommandsExecuted    int64
	TotalExpiredKeys         int64
	TotalEvictedKeys         int64
}

func (s *GeneralStats) IncrConnections() { s.mu.Lock(); s.TotalConnectionsReceived++; s.mu.Unlock() }
func (s *GeneralStats) IncrCommands()    { s.mu.Lock(); s.TotalCommandsExecuted++; s.mu.Unlock() }
func (s *GeneralStats) IncrExpired(n int64) {
	s.mu.Lock()
	s.TotalExpiredKeys += n
	s.mu.Unlock()
}
func (s *GeneralStats) IncrEvicted(n int64) {
	s.mu.Lock()
	s.TotalEvictedKeys += n
	s.mu.Unlock()
}

// AppState is the process-wide singleton shared across all
// connections: configuration, logger, persistence bookkeeping, and
// connection registry. It is passed explicitly to every handler
// rather than reached through package globals (spec.md §9 DESIGN
// NOTES: "Global state ... passed explicitly to handlers").
type AppState struct {
	Config *Config
	Logger *Logger

	StartTime time.Time

	Stats *GeneralStats

	RDBLastSaveUnix int64
	RDBSavesCount   int64
	BGSaving        bool

	Monitors   []*Client
	monitorsMu sync.Mutex

	activeConns   map[net.Conn]struct{}
	activeConnsMu sync.Mutex
}

func NewAppState(cfg *Config, logger *Logger) *AppState {
	return &AppState{
		Config:      cfg,
		Logger:      logger,
		StartTime:   time.Now(),
		Stats:       &GeneralStats{},
		activeConns: make(map[net.Conn]struct{}),
	}
}

func (s *AppState) AddConn(c net.Conn) {
	s.activeConnsMu.Lock()
	defer s.activeConnsMu.Unlock()
	s.activeConns[c] = struct{}{}
}

func (s *AppState) RemoveConn(c net.Conn) {
	s.activeConnsMu.Lock()
	defer s.activeConnsMu.Unlock()
	delete(s.activeConns, c)
}

func (s *AppState) ConnCount() int {
	s.activeConnsMu.Lock()
	defer s.activeConnsMu.Unlock()
	return len(s.activeConns)
}

func (s *AppState) CloseAllConnections() {
	s.activeConnsMu.Lock()
	defer s.activeConnsMu.Unlock()
	for c := range s.activeConns {
		c.Close()
	}
}

func (s *AppState) AddMonitor(c *Client) {
	s.monitorsMu.Lock()
	defer s.monitorsMu.Unlock()
	s.Monitors = append(s.Monitors, c)
}

func (s *AppState) RemoveMonitor(c *Client) {
	s.monitorsMu.Lock()
	defer s.monitorsMu.Unlock()
	kept := s.Monitors[:0]
	for _, m := range s.Monitors {
		if m != c {
			kept = append(kept, m)
		}
	}
	s.Monitors = kept
}

// FeedMonitors streams a one-line rendering of an executed command to
// every MONITOR client, mirroring the teacher's WriterMonitorLog.
func (s *AppState) FeedMonitors(executedBy *Client, req *Value) {
	s.monitorsMu.Lock()
	monitors := append([]*Client(nil), s.Monitors...)
	s.monitorsMu.Unlock()
	if len(monitors) == 0 {
		return
	}
	line := RenderMonitorLine(executedBy, req)
	for _, m := range monitors {
		if m == executedBy {
			continue
		}
		m.SendPush(NewStringP(line))
	}
}

func RenderMonitorLine(c *Client, v *Value) string {
	line := ""
	if c != nil && c.Conn != nil {
		line += c.Conn.RemoteAddr().String() + " "
	}
	line += "["
	for i, a := range v.Arr {
		if i > 0 {
			line += " "
		}
		line += "\"" + a.Blk + "\""
	}
	line += "]"
	return line
}
