package broadcast

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/votepulse/internal/domain"
	"github.com/pscheid92/votepulse/internal/metrics"
)

const (
	commandTimeout = 5 * time.Second // Actor command timeout
	stopTimeout    = 10 * time.Second
)

// hubCmd is the command interface for the Hub actor.
type hubCmd interface{ isHubCmd() }

type baseHubCmd struct{}

func (baseHubCmd) isHubCmd() {}

type registerCmd struct {
	baseHubCmd
	connection   *websocket.Conn
	errorChannel chan error
}

type unregisterCmd struct {
	baseHubCmd
	connection *websocket.Conn
}

type clientCountCmd struct {
	baseHubCmd
	replyChannel chan int
}

type stopCmd struct {
	baseHubCmd
}

// Hub owns all WebSocket tally clients on this instance. A single
// goroutine holds the client map; registration, fan-out, and shutdown
// all flow through the command channel, so no locks are needed. Update
// notifications arrive on one shared broadcast subscription.
type Hub struct {
	cmdCh        chan hubCmd
	clock        clockwork.Clock
	subscription domain.Subscription
	clients      map[*websocket.Conn]*clientWriter
	maxClients   int
	done         chan struct{}
	stopTimeout  time.Duration
}

// NewHub creates a hub fed by the given subscription and starts its
// actor goroutine. maxClients caps concurrent connections on this
// instance.
func NewHub(subscription domain.Subscription, clock clockwork.Clock, maxClients int) *Hub {
	h := &Hub{
		cmdCh:        make(chan hubCmd, 256),
		clock:        clock,
		subscription: subscription,
		clients:      make(map[*websocket.Conn]*clientWriter),
		maxClients:   maxClients,
		done:         make(chan struct{}),
		stopTimeout:  stopTimeout,
	}
	go h.run()
	return h
}

// Register adds a client connection. Returns an error if the instance
// is at capacity, in which case the connection is closed.
func (h *Hub) Register(conn *websocket.Conn) error {
	errCh := make(chan error, 1)
	h.cmdCh <- registerCmd{connection: conn, errorChannel: errCh}

	// Use timeout to prevent blocking forever if the hub is stuck
	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case err := <-errCh:
		return err
	case <-timer.Chan():
		return fmt.Errorf("register command timed out after %v", commandTimeout)
	}
}

// Unregister removes a client connection.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.cmdCh <- unregisterCmd{connection: conn}
}

// ClientCount returns the number of connected clients, or -1 if the
// command times out.
func (h *Hub) ClientCount() int {
	replyCh := make(chan int, 1)
	h.cmdCh <- clientCountCmd{replyChannel: replyCh}

	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case count := <-replyCh:
		return count
	case <-timer.Chan():
		slog.Warn("ClientCount timed out", "timeout", commandTimeout)
		return -1
	}
}

// Stop shuts down the hub, closing all client connections and the
// broadcast subscription. Blocks until the actor goroutine has exited
// or the timeout is reached.
func (h *Hub) Stop() {
	h.cmdCh <- stopCmd{}

	timeout := h.clock.NewTimer(h.stopTimeout)
	defer timeout.Stop()

	select {
	case <-h.done:
		slog.Info("Hub stopped gracefully")
	case <-timeout.Chan():
		// Abandon the actor; it still owns h.done and closes it
		// whenever it eventually exits.
		slog.Warn("Hub stop timeout exceeded, abandoning shutdown wait", "timeout", h.stopTimeout)
	}
}

func (h *Hub) run() {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Hub panic recovered", "panic", r)
			h.closeAllClients("hub failure")
		}
	}()

	defer close(h.done)

	// Track command channel depth every second
	depthTicker := h.clock.NewTicker(1 * time.Second)
	defer depthTicker.Stop()

	for {
		select {
		case <-depthTicker.Chan():
			depth := len(h.cmdCh)
			metrics.HubCommandChannelDepth.Set(float64(depth))

			if depth > 200 { // 80% of 256
				slog.Warn("Command channel near capacity", "depth", depth, "capacity", cap(h.cmdCh))
			}

		case cmd := <-h.cmdCh:
			switch c := cmd.(type) {
			case registerCmd:
				h.handleRegister(c)
			case unregisterCmd:
				h.handleUnregister(c)
			case clientCountCmd:
				c.replyChannel <- len(h.clients)
			case stopCmd:
				h.handleStop()
				return
			default:
				slog.Warn("Hub received unknown command type", "command_type", fmt.Sprintf("%T", cmd))
			}

		case msg, ok := <-h.subscription.Messages():
			if !ok {
				slog.Warn("Broadcast subscription closed, stopping hub")
				h.handleStop()
				return
			}
			h.handleBroadcast(msg)
		}
	}
}

func (h *Hub) handleRegister(c registerCmd) {
	if len(h.clients) >= h.maxClients {
		slog.Warn("Rejecting client: max clients reached", "max_clients", h.maxClients)
		metrics.StreamClientsRejectedTotal.WithLabelValues("capacity").Inc()
		c.connection.Close()
		c.errorChannel <- fmt.Errorf("max clients (%d) reached", h.maxClients)
		return
	}

	h.clients[c.connection] = newClientWriter(c.connection, h.clock)
	metrics.StreamClientsCurrent.WithLabelValues("websocket").Set(float64(len(h.clients)))

	slog.Debug("Client registered", "total_clients", len(h.clients))
	c.errorChannel <- nil
}

func (h *Hub) handleUnregister(c unregisterCmd) {
	cw, exists := h.clients[c.connection]
	if !exists {
		return
	}

	cw.stop()
	delete(h.clients, c.connection)
	metrics.StreamClientsCurrent.WithLabelValues("websocket").Set(float64(len(h.clients)))

	slog.Debug("Client unregistered", "remaining_clients", len(h.clients))
}

func (h *Hub) handleBroadcast(msg domain.BroadcastMessage) {
	if len(h.clients) == 0 {
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("Failed to marshal broadcast message", "error", err)
		return
	}

	var slow []*websocket.Conn
	for conn, writer := range h.clients {
		select {
		case writer.sendChannel <- data:
			metrics.StreamEventsDeliveredTotal.WithLabelValues("websocket").Inc()
		default:
			slow = append(slow, conn)
		}
	}

	// A client whose buffer is full is not keeping up; drop it rather
	// than stall everyone else.
	for _, conn := range slow {
		slog.Warn("Disconnecting slow client")
		metrics.HubSlowClientsEvicted.Inc()
		h.handleUnregister(unregisterCmd{connection: conn})
	}
}

func (h *Hub) handleStop() {
	slog.Info("Hub shutting down", "clients", len(h.clients))
	h.closeAllClients("Server shutting down")
	if err := h.subscription.Close(); err != nil {
		slog.Warn("Failed to close broadcast subscription", "error", err)
	}
	slog.Info("Hub shutdown complete")
}

// closeAllClients closes all client connections with the given reason.
// Used during panic recovery and graceful shutdown.
func (h *Hub) closeAllClients(reason string) {
	for conn, cw := range h.clients {
		cw.stopGraceful(reason)
		delete(h.clients, conn)
	}
	metrics.StreamClientsCurrent.WithLabelValues("websocket").Set(0)
}
