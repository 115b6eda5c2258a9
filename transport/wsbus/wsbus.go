// Package wsbus is the concrete transport: an asynchronous, bidirectional
// message bus over a websocket connection per peer. It satisfies
// engine.Transport (Send) and delivers inbound frames to a caller-supplied
// handler, normally client.Client.HandleMessage.
//
// The protocol needs in-order, reliable delivery within one channel
// peer-pair for the session but guarantees nothing across distinct
// channels; that maps onto one websocket connection per remote address,
// since every message exchanged with one peer belongs to the same bilateral
// session regardless of which channel identifier it names.
package wsbus

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/btcsuite/btclog"
	"github.com/gorilla/websocket"

	"github.com/litexio/scnode/wire"
	"github.com/litexio/scnode/xcrypto"
)

const (
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
	pongTimeout  = 60 * time.Second
)

// Handler processes one inbound wire message. Returning an error only logs;
// it never tears down the connection. Signature, nonce, and balance-proof
// validation failures are always local drops, and a bad message must not
// sever an otherwise-healthy session.
type Handler func(from xcrypto.Address, msg wire.Message) error

// Bus is a registry of live peer connections plus the dialer/upgrader that
// establish new ones. A Bus has exactly one Handler for its whole lifetime,
// set at construction.
type Bus struct {
	handler  Handler
	log      btclog.Logger
	upgrader websocket.Upgrader

	mu    sync.Mutex
	peers map[xcrypto.Address]*peerConn
}

// New constructs a Bus. log may be btclog.Disabled.
func New(handler Handler, log btclog.Logger) *Bus {
	if log == nil {
		log = btclog.Disabled
	}
	return &Bus{
		handler: handler,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The wager-channel protocol is bilateral and pre-arranged out
			// of band; there is no browser-origin concern to police here.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		peers: make(map[xcrypto.Address]*peerConn),
	}
}

// peerConn is one live connection to a remote participant, identified by
// the handshake frame exchanged immediately after connect.
type peerConn struct {
	addr xcrypto.Address
	conn *websocket.Conn

	writeMu sync.Mutex
	quit    chan struct{}
}

// handshake is the first frame exchanged on a new connection, identifying
// the sender's address so the receiving side can key its peers map - the
// wire protocol itself carries no transport-level identity.
type handshake struct {
	From xcrypto.Address `json:"from"`
}

// Dial opens an outbound connection to url, announces local as this side's
// identity, and begins the connection's read loop. The connection is
// registered under peer so Send(peer, ...) routes to it.
func (b *Bus) Dial(peer, local xcrypto.Address, url string) error {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return fmt.Errorf("wsbus: dial %s: %w", url, err)
	}
	if err := conn.WriteJSON(handshake{From: local}); err != nil {
		conn.Close()
		return fmt.Errorf("wsbus: handshake to %s: %w", url, err)
	}
	b.register(peer, conn)
	return nil
}

// ServeHTTP upgrades an inbound HTTP request to a websocket connection,
// reads the handshake frame to learn the peer's address, and begins the
// connection's read loop. Mount this at the transport endpoint a
// configured partner dials.
func (b *Bus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.log.Errorf("wsbus: upgrade failed: %v", err)
		return
	}

	var hs handshake
	if err := conn.ReadJSON(&hs); err != nil {
		b.log.Errorf("wsbus: handshake read failed: %v", err)
		conn.Close()
		return
	}
	b.register(hs.From, conn)
}

func (b *Bus) register(peer xcrypto.Address, conn *websocket.Conn) {
	pc := &peerConn{addr: peer, conn: conn, quit: make(chan struct{})}

	b.mu.Lock()
	if old, ok := b.peers[peer]; ok {
		old.close()
	}
	b.peers[peer] = pc
	b.mu.Unlock()

	go b.readLoop(pc)
	go b.pingLoop(pc)
}

// Send implements engine.Transport: it frames msg via wire.Marshal and
// writes it to peer's live connection. There is no outbound queue - a
// write failure is returned to the caller rather than silently buffered,
// since the caller (the channel actor) is the only party that knows
// whether to retry.
func (b *Bus) Send(to xcrypto.Address, msg wire.Message) error {
	b.mu.Lock()
	pc, ok := b.peers[to]
	b.mu.Unlock()
	if !ok {
		return fmt.Errorf("wsbus: no connection to peer %x", to)
	}

	data, err := wire.Marshal(msg)
	if err != nil {
		return err
	}

	pc.writeMu.Lock()
	defer pc.writeMu.Unlock()
	pc.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return pc.conn.WriteMessage(websocket.TextMessage, data)
}

// Close tears down every live peer connection.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for addr, pc := range b.peers {
		pc.close()
		delete(b.peers, addr)
	}
}

func (pc *peerConn) close() {
	select {
	case <-pc.quit:
	default:
		close(pc.quit)
	}
	pc.conn.Close()
}

func (b *Bus) readLoop(pc *peerConn) {
	pc.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	pc.conn.SetPongHandler(func(string) error {
		pc.conn.SetReadDeadline(time.Now().Add(pongTimeout))
		return nil
	})

	for {
		_, data, err := pc.conn.ReadMessage()
		if err != nil {
			b.log.Debugf("wsbus: connection to %x closed: %v", pc.addr, err)
			return
		}

		msg, err := wire.Unmarshal(data)
		if err != nil {
			b.log.Errorf("wsbus: dropping unparsable frame from %x: %v", pc.addr, err)
			continue
		}
		if err := b.handler(pc.addr, msg); err != nil {
			b.log.Errorf("wsbus: handling %s from %x: %v", msg.Type(), pc.addr, err)
		}
	}
}

func (b *Bus) pingLoop(pc *peerConn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pc.writeMu.Lock()
			pc.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			err := pc.conn.WriteMessage(websocket.PingMessage, nil)
			pc.writeMu.Unlock()
			if err != nil {
				return
			}
		case <-pc.quit:
			return
		}
	}
}
