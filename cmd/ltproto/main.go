package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/pterm/pterm"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/lanthing-go/ltsignal/internal/ledger"
	"github.com/lanthing-go/ltsignal/internal/protocol"
	"github.com/lanthing-go/ltsignal/internal/store"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:      "ltproto",
		Usage:     "inspect the ltsignal protocol message table",
		UsageText: "ltproto <command> [options] [arguments]",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List every registered message type",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "print JSON instead of a table"},
					&cli.StringFlag{Name: "area", Usage: "only show one area: device, signaling or connection"},
				},
				Action: listAction,
			},
			{
				Name:      "lookup",
				Usage:     "Resolve a message ID or full message name",
				ArgsUsage: "<id|name>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "print JSON instead of a table"},
				},
				Action: lookupAction,
			},
			{
				Name:  "check",
				Usage: "Compare the compiled table against a released-ID ledger without writing",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "db", Aliases: []string{"d"}, Value: "ltsignal.db", Usage: "path to the ledger database"},
				},
				Action: checkAction,
			},
		},
	}
}

type entryView struct {
	ID     uint32   `json:"id"`
	Name   string   `json:"name"`
	Area   string   `json:"area"`
	Fields []string `json:"fields"`
}

func viewOf(e protocol.Entry) entryView {
	fields := e.Type.Descriptor().Fields()
	names := make([]string, fields.Len())
	for i := 0; i < fields.Len(); i++ {
		names[i] = string(fields.Get(i).Name())
	}
	return entryView{
		ID:     uint32(e.ID),
		Name:   string(e.Name()),
		Area:   protocol.AreaOf(e.ID).String(),
		Fields: names,
	}
}

func listAction(c *cli.Context) error {
	area := strings.ToLower(c.String("area"))

	var views []entryView
	for _, e := range protocol.Default().Entries() {
		v := viewOf(e)
		if area != "" && v.Area != area {
			continue
		}
		views = append(views, v)
	}
	return render(c, views)
}

func lookupAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("lookup takes exactly one argument", 2)
	}
	reg := protocol.Default()
	arg := c.Args().First()

	id, err := parseID(reg, arg)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	mt, err := reg.ResolveByID(id)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	return render(c, []entryView{viewOf(protocol.Entry{ID: id, Type: mt})})
}

// parseID accepts a decimal ID or a full message name.
func parseID(reg *protocol.Registry, arg string) (protocol.ID, error) {
	if n, err := strconv.ParseUint(arg, 10, 32); err == nil {
		return protocol.ID(n), nil
	}
	return reg.ResolveByName(protoreflect.FullName(arg))
}

func checkAction(c *cli.Context) error {
	db, err := store.OpenReadOnly(c.String("db"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("open ledger: %v", err), 1)
	}
	defer db.Close()

	report, err := ledger.NewService(db, zap.NewNop()).Check(c.Context, protocol.Default())
	if report == nil {
		return cli.Exit(err.Error(), 1)
	}

	data := pterm.TableData{{"Change", "IDs"}}
	for _, row := range []struct {
		label string
		ids   []protocol.ID
	}{
		{"added", report.AddedIDs()},
		{"retired", report.Retired},
		{"revived", report.Revived},
		{"unchanged", report.Unchanged},
	} {
		data = append(data, []string{row.label, joinIDs(row.ids)})
	}
	out, rerr := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if rerr != nil {
		return rerr
	}
	fmt.Fprintln(c.App.Writer, out)

	if err != nil {
		for _, conflict := range report.Conflicts {
			fmt.Fprintln(c.App.ErrWriter, "conflict:", conflict.String())
		}
		return cli.Exit(err.Error(), 1)
	}
	return nil
}

func render(c *cli.Context, views []entryView) error {
	if c.Bool("json") {
		data, err := json.MarshalIndent(views, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(c.App.Writer, string(data))
		return nil
	}

	data := pterm.TableData{{"ID", "Message", "Area", "Fields"}}
	for _, v := range views {
		data = append(data, []string{strconv.FormatUint(uint64(v.ID), 10), v.Name, v.Area, strings.Join(v.Fields, ", ")})
	}
	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, out)
	return nil
}

func joinIDs(ids []protocol.ID) string {
	if len(ids) == 0 {
		return "-"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(uint64(id), 10)
	}
	return strings.Join(parts, " ")
}
