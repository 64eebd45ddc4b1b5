package client

import (
	"io"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Client is one connection to the server: a RESP socket or a form websocket.
type Client struct {
	ID         int64
	Addr       string
	Transport  string
	Name       string
	CreateTime time.Time
	LastCmd    time.Time
	Commands   int64

	conn io.Closer
	mu   sync.RWMutex
}

// Info is a point-in-time copy of a Client.
type Info struct {
	ID         int64     `json:"id"`
	Addr       string    `json:"addr"`
	Transport  string    `json:"transport"`
	Name       string    `json:"name,omitempty"`
	CreateTime time.Time `json:"created_at"`
	LastCmd    time.Time `json:"last_command_at"`
	Commands   int64     `json:"commands"`
}

func (c *Client) Info() Info {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Info{
		ID:         c.ID,
		Addr:       c.Addr,
		Transport:  c.Transport,
		Name:       c.Name,
		CreateTime: c.CreateTime,
		LastCmd:    c.LastCmd,
		Commands:   c.Commands,
	}
}

// Touch records a command received from the client.
func (c *Client) Touch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.LastCmd = time.Now()
	c.Commands++
}

func (c *Client) SetName(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Name = name
}

// Manager tracks open connections across transports.
type Manager struct {
	clients map[int64]*Client
	nextID  int64
	mu      sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		clients: make(map[int64]*Client),
	}
}

// AddClient registers conn and returns its record.
func (cm *Manager) AddClient(addr, transport string, conn io.Closer) *Client {
	now := time.Now()
	client := &Client{
		ID:         atomic.AddInt64(&cm.nextID, 1),
		Addr:       addr,
		Transport:  transport,
		CreateTime: now,
		LastCmd:    now,
		conn:       conn,
	}

	cm.mu.Lock()
	cm.clients[client.ID] = client
	cm.mu.Unlock()
	return client
}

func (cm *Manager) GetClientByID(id int64) (*Client, bool) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	client, ok := cm.clients[id]
	return client, ok
}

// RemoveClient forgets a client. It does not close the connection.
func (cm *Manager) RemoveClient(id int64) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	delete(cm.clients, id)
}

// List returns a copy of every registered client ordered by id.
func (cm *Manager) List() []Info {
	cm.mu.RLock()
	out := make([]Info, 0, len(cm.clients))
	for _, c := range cm.clients {
		out = append(out, c.Info())
	}
	cm.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (cm *Manager) Len() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.clients)
}

// CloseAllClients closes every connection and clears the registry.
func (cm *Manager) CloseAllClients() {
	cm.mu.Lock()
	clients := cm.clients
	cm.clients = make(map[int64]*Client)
	cm.mu.Unlock()

	for _, c := range clients {
		if c.conn != nil {
			_ = c.conn.Close()
		}
	}
}
