// wagerd is the long-running wager-channel agent: it opens the state store,
// starts the protocol engine behind the public client facade, and serves
// the websocket transport its configured partner dials. wagerd owns the
// stores; wagerctl is the thin command-line tool for inspecting them.
package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/btcsuite/btclog"
	"github.com/urfave/cli"

	"github.com/litexio/scnode/channeldb"
	"github.com/litexio/scnode/client"
	"github.com/litexio/scnode/config"
	"github.com/litexio/scnode/engine"
	"github.com/litexio/scnode/transport/wsbus"
	"github.com/litexio/scnode/wire"
	"github.com/litexio/scnode/wlog"
	"github.com/litexio/scnode/xcrypto"
)

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "[wagerd] %v\n", err)
	os.Exit(1)
}

func main() {
	app := cli.NewApp()
	app.Name = "wagerd"
	app.Usage = "off-chain wager-channel daemon"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "privkey",
			Usage: "hex-encoded secp256k1 private key of the local participant",
		},
		cli.StringFlag{
			Name:  "paymentcontract",
			Usage: "hex address of the on-chain payment contract",
		},
		cli.StringFlag{
			Name:  "gamecontract",
			Usage: "hex address of the on-chain game contract",
		},
		cli.StringFlag{
			Name:  "boltdb",
			Usage: "path of the channel store",
			Value: config.DefaultBoltPath,
		},
		cli.StringFlag{
			Name:  "sqlitedb",
			Usage: "path of the bet store",
			Value: config.DefaultSQLitePath,
		},
		cli.StringFlag{
			Name:  "listen",
			Usage: "host:port the websocket transport listens on",
			Value: "localhost:9735",
		},
		cli.StringFlag{
			Name:  "peeraddr",
			Usage: "hex address of the remote participant to dial (optional)",
		},
		cli.StringFlag{
			Name:  "peerurl",
			Usage: "ws:// endpoint of the remote participant to dial (optional)",
		},
		cli.Uint64Flag{
			Name:  "settlewindow",
			Usage: "blocks between close and finalisation",
			Value: config.DefaultSettleWindow,
		},
		cli.StringFlag{
			Name:  "logdir",
			Usage: "directory for rotated log files (optional)",
		},
		cli.StringFlag{
			Name:  "debuglevel",
			Usage: "log level: trace, debug, info, warn, error, critical",
			Value: "info",
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fatal(err)
	}
}

func run(ctx *cli.Context) error {
	cfg, err := buildConfig(ctx)
	if err != nil {
		return err
	}

	level, ok := btclog.LevelFromString(ctx.String("debuglevel"))
	if !ok {
		return fmt.Errorf("unrecognised debuglevel %q", ctx.String("debuglevel"))
	}
	logs, err := wlog.New(wlog.Config{
		LogDir: cfg.LogDir,
		Writer: os.Stdout,
		Level:  level,
	})
	if err != nil {
		return err
	}
	defer logs.Shutdown()
	log := logs.Get(wlog.SubsystemClient)

	db, err := openStore(cfg, logs)
	if err != nil {
		return err
	}
	defer db.Close()

	// The bus delivers inbound frames straight into the client once it
	// exists; until then frames cannot arrive because nothing is listening.
	var c *client.Client
	bus := wsbus.New(func(_ xcrypto.Address, msg wire.Message) error {
		return c.HandleMessage(msg)
	}, logs.Get(wlog.SubsystemTransport))
	defer bus.Close()

	c, err = client.New(client.Config{
		Store:      db,
		PrivateKey: cfg.PrivateKey,
		Local:      cfg.Local,
		Transport:  bus,
		Auto:       engine.DefaultAutoRespond(),
		Log:        logs.Get(wlog.SubsystemEngine),
	})
	if err != nil {
		return err
	}
	defer c.Stop()

	if url := ctx.String("peerurl"); url != "" {
		peer, err := config.ParseAddress(ctx.String("peeraddr"))
		if err != nil {
			return fmt.Errorf("peerurl requires a valid peeraddr: %w", err)
		}
		if err := bus.Dial(peer, cfg.Local, url); err != nil {
			return err
		}
		log.Infof("connected to peer %x at %s", peer, url)
	}

	srv := &http.Server{Addr: ctx.String("listen"), Handler: bus}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("transport listener: %v", err)
		}
	}()
	log.Infof("wagerd listening on %s as %x", ctx.String("listen"), cfg.Local)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	log.Infof("shutting down")
	srv.Close()
	return nil
}

func openStore(cfg *config.Config, logs *wlog.Loggers) (*channeldb.DB, error) {
	return channeldb.Open(cfg.BoltPath, cfg.SQLitePath, logs.Get(wlog.SubsystemStore))
}

func buildConfig(ctx *cli.Context) (*config.Config, error) {
	priv, err := config.ParsePrivateKey(ctx.String("privkey"))
	if err != nil {
		return nil, err
	}

	cfg := &config.Config{
		PrivateKey:    priv,
		BoltPath:      ctx.String("boltdb"),
		SQLitePath:    ctx.String("sqlitedb"),
		TransportAddr: ctx.String("listen"),
		Listen:        true,
		SettleWindow:  ctx.Uint64("settlewindow"),
		LogDir:        ctx.String("logdir"),
	}
	if s := ctx.String("paymentcontract"); s != "" {
		if cfg.PaymentContract, err = config.ParseAddress(s); err != nil {
			return nil, err
		}
	}
	if s := ctx.String("gamecontract"); s != "" {
		if cfg.GameContract, err = config.ParseAddress(s); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
