package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"echoflow/internal/config"
	"echoflow/internal/control"

	"github.com/spf13/cobra"
)

// ctlSpec describes one control subcommand.
type ctlSpec struct {
	use   string
	short string
	args  cobra.PositionalArgs
	build func(args []string) control.Command
}

func plain(name string) func([]string) control.Command {
	return func([]string) control.Command { return control.Command{Cmd: name} }
}

var ctlSpecs = []ctlSpec{
	{"start", "Start recording", cobra.NoArgs, plain(control.CmdStart)},
	{"stop", "Stop recording and process the clip", cobra.NoArgs, plain(control.CmdStop)},
	{"toggle", "Start or stop recording", cobra.NoArgs, plain(control.CmdToggle)},
	{"cancel", "Discard the current recording", cobra.NoArgs, plain(control.CmdCancel)},
	{"toggle-window", "Show or hide the chat window", cobra.NoArgs, plain(control.CmdToggleWindow)},
	{"status", "Print the session state", cobra.NoArgs, plain(control.CmdStatus)},
	{"clear", "Clear the conversation", cobra.NoArgs, plain(control.CmdClear)},
	{"quit", "Stop the running instance", cobra.NoArgs, plain(control.CmdQuit)},
	{"mode <mode>", "Switch mode (clean, meeting, idea, ask, custom)", cobra.ExactArgs(1),
		func(a []string) control.Command { return control.Command{Cmd: control.CmdMode, Mode: a[0]} }},
	{"replay <id>", "Load an archived conversation", cobra.ExactArgs(1),
		func(a []string) control.Command { return control.Command{Cmd: control.CmdReplay, ID: a[0]} }},
	{"bind <app|rec> <combo>", "Rebind a global hotkey, e.g. bind rec Alt+Shift+R", cobra.ExactArgs(2),
		func(a []string) control.Command {
			return control.Command{Cmd: control.CmdBind, Purpose: a[0], Combo: a[1]}
		}},
}

func newCtlCmd(g *globals) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "ctl",
		Short: "Control a running instance",
		Long: `Send a command to the instance started with "echoflow run" over its control
socket. Bind these to desktop shortcuts where global hotkeys are unavailable.`,
	}
	cmd.PersistentFlags().BoolVar(&asJSON, "json", false, "print the raw response")

	for _, spec := range ctlSpecs {
		spec := spec
		cmd.AddCommand(&cobra.Command{
			Use:   spec.use,
			Short: spec.short,
			Args:  spec.args,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := g.loadConfig()
				if err != nil {
					return err
				}
				resp, err := send(config.SocketPath(&cfg), spec.build(args))
				if err != nil {
					return err
				}
				if asJSON {
					b, err := json.Marshal(resp)
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), string(b))
				} else {
					printResponse(cmd, resp)
				}
				if !resp.OK {
					return errors.New(resp.Error)
				}
				return nil
			},
		})
	}
	return cmd
}

func send(socket string, c control.Command) (control.Response, error) {
	client, err := control.Connect(socket)
	if err != nil {
		return control.Response{}, fmt.Errorf("echoflow is not running (%w)", err)
	}
	defer client.Close()
	return client.Send(c)
}

func printResponse(cmd *cobra.Command, resp control.Response) {
	if !resp.OK || resp.Status == "" {
		return
	}
	out := cmd.OutOrStdout()
	line := fmt.Sprintf("%s  %s", headerStyle.Render(resp.Status), modeStyle.Render(resp.Mode))
	if resp.Messages != nil {
		line += dimStyle.Render(fmt.Sprintf("  %d messages", *resp.Messages))
	}
	fmt.Fprintln(out, line)
	if resp.Error != "" {
		fmt.Fprintln(out, "last error: "+resp.Error)
	}
	if resp.LastReply != "" {
		fmt.Fprintln(out)
		fmt.Fprintln(out, resp.LastReply)
	}
}
