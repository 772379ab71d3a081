package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smazurov/ispsrc/internal/caps"
	"github.com/smazurov/ispsrc/internal/config"
	"github.com/smazurov/ispsrc/internal/device/v4l2dev"
	"github.com/smazurov/ispsrc/internal/negotiate"
	"github.com/smazurov/ispsrc/internal/source"
)

// CreateNegotiateCmd creates the negotiate command.
func CreateNegotiateCmd() *cobra.Command {
	var own string
	var uri string
	var peer string
	var width, height int
	var rate string

	cmd := &cobra.Command{
		Use:   "negotiate",
		Short: "Print the format a source would agree on",
		Long: `Intersects the source caps with the peer caps and fixates the result, without touching ` +
			`the device format. Source caps come from --own, from the device named by --uri, or from ` +
			`the built-in V4L2 template.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ownCaps, err := negotiateOwnCaps(own, uri)
			if err != nil {
				return err
			}
			peerCaps, err := config.ParseCapsOption(peer)
			if err != nil {
				return err
			}
			fr, err := caps.ParseFraction(rate)
			if err != nil {
				return fmt.Errorf("invalid rate %q: %w", rate, err)
			}

			n := negotiate.New(
				negotiate.WithTarget(caps.Target{Width: width, Height: height, FrameRate: fr}),
				negotiate.WithResolver(v4l2dev.Resolver()),
			)
			res, err := n.Agree(ownCaps, peerCaps)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if res.NotNeeded {
				fmt.Fprintln(out, "negotiation not needed")
				return nil
			}
			fmt.Fprintln(out, res.Format)
			return nil
		},
	}

	cmd.Flags().StringVar(&own, "own", "", "Formats the source can produce")
	cmd.Flags().StringVar(&uri, "uri", "", "Read the source formats from this device")
	cmd.Flags().StringVar(&peer, "peer", "", "Formats accepted downstream, empty for no peer")
	cmd.Flags().IntVar(&width, "width", caps.DefaultTarget.Width, "Preferred width")
	cmd.Flags().IntVar(&height, "height", caps.DefaultTarget.Height, "Preferred height")
	cmd.Flags().StringVar(&rate, "rate", caps.DefaultTarget.FrameRate.String(), "Preferred frame rate")

	return cmd
}

func negotiateOwnCaps(own, uri string) (caps.Set, error) {
	switch {
	case own != "" && uri != "":
		return nil, fmt.Errorf("--own and --uri are mutually exclusive")
	case own != "":
		return caps.Parse(own)
	case uri != "":
		dev, err := source.OpenURI(uri)
		if err != nil {
			return nil, err
		}
		if err := dev.Open(); err != nil {
			return nil, err
		}
		defer func() { _ = dev.Close() }()
		return dev.Caps()
	default:
		return v4l2dev.TemplateCaps(), nil
	}
}
