package cmd

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
	"github.com/spf13/cobra"
)

var shareNoQR bool

// shareCmd prints an activation link for a session.
var shareCmd = &cobra.Command{
	Use:   "share <session-id>",
	Short: "Print an activation link and QR code for a session",
	Long: `Print a deep link that jumps straight to a session.

Opening the link on another device (or writing the session id to the
activate handoff file) focuses that session in a running workspace.

Examples:
  crewdeck share 0b2f1c8a
  crewdeck share 0b2f1c8a --no-qr`,
	Args: cobra.ExactArgs(1),
	RunE: runShare,
}

func init() {
	shareCmd.Flags().BoolVar(&shareNoQR, "no-qr", false, "skip the terminal QR code")
}

func runShare(cmd *cobra.Command, args []string) error {
	client, _, err := apiFromConfig()
	if err != nil {
		return err
	}

	link := client.DeepLinkURL(args[0])
	fmt.Println(link)

	if shareNoQR {
		return nil
	}
	qr, err := qrcode.New(link, qrcode.Medium)
	if err != nil {
		return fmt.Errorf("failed to generate QR code: %w", err)
	}
	fmt.Println(qr.ToSmallString(false))
	return nil
}
