// wagerctl is the inspection tool for a wagerd node's state stores: it
// opens the same channel and bet databases and prints records as JSON. It
// must not run against a store a live wagerd is writing - bolt takes an
// exclusive file lock and this tool holds it only for the duration of one
// command.
package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/btcsuite/btclog"
	"github.com/urfave/cli"

	"github.com/litexio/scnode/channeldb"
	"github.com/litexio/scnode/config"
)

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "[wagerctl] %v\n", err)
	os.Exit(1)
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func openStore(ctx *cli.Context) (*channeldb.DB, error) {
	return channeldb.Open(
		ctx.GlobalString("boltdb"),
		ctx.GlobalString("sqlitedb"),
		btclog.Disabled,
	)
}

func parseID(s string) ([32]byte, error) {
	var id [32]byte
	s = strings.TrimPrefix(s, "0x")
	raw, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("invalid id hex: %w", err)
	}
	if len(raw) != 32 {
		return id, fmt.Errorf("id must be 32 bytes, got %d", len(raw))
	}
	copy(id[:], raw)
	return id, nil
}

var listChannelsCommand = cli.Command{
	Name:   "listchannels",
	Usage:  "List every channel record in the store.",
	Action: listChannels,
}

func listChannels(ctx *cli.Context) error {
	db, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	channels, err := db.ListChannels()
	if err != nil {
		return err
	}
	return printJSON(channels)
}

var getChannelCommand = cli.Command{
	Name:      "getchannel",
	Usage:     "Print one channel record.",
	ArgsUsage: "channel_id",
	Action:    getChannel,
}

func getChannel(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.ShowCommandHelp(ctx, "getchannel")
	}
	id, err := parseID(ctx.Args().First())
	if err != nil {
		return err
	}

	db, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	ch, err := db.GetChannel(id)
	if err != nil {
		return err
	}
	return printJSON(ch)
}

var listBetsCommand = cli.Command{
	Name:  "listbets",
	Usage: "List bet records, filtered and paginated.",
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "channel",
			Usage: "only bets on this channel_id",
		},
		cli.IntFlag{
			Name:  "status",
			Usage: "only bets with this numeric status (optional)",
			Value: -1,
		},
		cli.IntFlag{
			Name:  "offset",
			Usage: "rows to skip",
		},
		cli.IntFlag{
			Name:  "limit",
			Usage: "maximum rows to return",
			Value: 50,
		},
	},
	Action: listBets,
}

func listBets(ctx *cli.Context) error {
	var filter channeldb.BetFilter
	if s := ctx.String("channel"); s != "" {
		id, err := parseID(s)
		if err != nil {
			return err
		}
		filter.ChannelID = &id
	}
	if v := ctx.Int("status"); v >= 0 {
		status := channeldb.BetStatus(v)
		filter.Status = &status
	}

	db, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	bets, err := db.ListBets(filter, ctx.Int("offset"), ctx.Int("limit"))
	if err != nil {
		return err
	}
	return printJSON(bets)
}

var getBetCommand = cli.Command{
	Name:      "getbet",
	Usage:     "Print one bet record by its derived bet id.",
	ArgsUsage: "bet_id",
	Action:    getBet,
}

func getBet(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.ShowCommandHelp(ctx, "getbet")
	}
	id, err := parseID(ctx.Args().First())
	if err != nil {
		return err
	}

	db, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	bet, err := db.GetBetByID(id)
	if err != nil {
		return err
	}
	return printJSON(bet)
}

func main() {
	app := cli.NewApp()
	app.Name = "wagerctl"
	app.Usage = "inspect a wagerd node's channel and bet stores"
	app.Flags = []cli.Flag{
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
	}
	app.Commands = []cli.Command{
		listChannelsCommand,
		getChannelCommand,
		listBetsCommand,
		getBetCommand,
	}

	if err := app.Run(os.Args); err != nil {
		fatal(err)
	}
}
