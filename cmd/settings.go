package cmd

import (
	"fmt"
	"sort"
	"strings"

	"echoflow/internal/chat"
	"echoflow/internal/config"
	"echoflow/internal/hotkey"
	"echoflow/internal/settings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type setter func(s *settings.Store, value string) error

var setters = map[string]setter{
	"apikey": func(s *settings.Store, v string) error {
		return s.SetAPIKey(strings.TrimSpace(v))
	},
	"mode": func(s *settings.Store, v string) error {
		m, err := chat.ParseMode(v)
		if err != nil {
			return err
		}
		return s.SetMode(m)
	},
	"prompt": func(s *settings.Store, v string) error {
		return s.SetCustomPrompt(v)
	},
	"magicpaste": func(s *settings.Store, v string) error {
		on, err := config.ParseBool(v)
		if err != nil {
			return err
		}
		return s.SetMagicPaste(on)
	},
	"hotkey-app": hotkeySetter(hotkey.PurposeToggleApp),
	"hotkey-rec": hotkeySetter(hotkey.PurposeToggleRecording),
}

func hotkeySetter(p hotkey.Purpose) setter {
	return func(s *settings.Store, v string) error {
		c, err := hotkey.Parse(v)
		if err != nil {
			return err
		}
		other := hotkey.PurposeToggleApp
		if p == hotkey.PurposeToggleApp {
			other = hotkey.PurposeToggleRecording
		}
		if oc, err := hotkey.Parse(s.Snapshot().Hotkey(other)); err == nil && oc == c {
			return fmt.Errorf("%s: %w to %s", c, hotkey.ErrConflict, other)
		}
		return s.SetHotkey(p, c.String())
	}
}

func settingKeys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// maskKey keeps the first and last four characters of a credential.
func maskKey(k string) string {
	if k == "" {
		return ""
	}
	if len(k) <= 8 {
		return strings.Repeat("*", len(k))
	}
	return k[:4] + strings.Repeat("*", len(k)-8) + k[len(k)-4:]
}

func newSettingsCmd(g *globals) *cobra.Command {
	var reveal bool
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the saved settings as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, err := g.openState(cmd)
			if err != nil {
				return err
			}
			defer st.Close()
			snap := st.Settings.Snapshot()
			if !reveal {
				snap.APIKey = maskKey(snap.APIKey)
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(snap); err != nil {
				return err
			}
			return enc.Close()
		},
	}
	show.Flags().BoolVar(&reveal, "reveal", false, "print the API key unmasked")

	set := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Save one setting",
		Long: `Save one setting. Keys: ` + strings.Join(settingKeys(), ", ") + `.

Hotkeys changed here take effect on the next start; use
"echoflow ctl bind" to rebind a running instance.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			apply, ok := setters[strings.ToLower(args[0])]
			if !ok {
				return fmt.Errorf("unknown setting %q (allowed: %s)", args[0], strings.Join(settingKeys(), ", "))
			}
			_, st, err := g.openState(cmd)
			if err != nil {
				return err
			}
			defer st.Close()
			if err := apply(st.Settings, args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", successStyle.Render("saved"), strings.ToLower(args[0]))
			return nil
		},
	}

	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change saved settings",
	}
	cmd.AddCommand(show, set)
	return cmd
}
