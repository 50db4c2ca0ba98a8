package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vbncursed/vkr/pass-service/internal/pkpass"
)

const placeholderToken = "00000000000000000000000000000000"

func newHashCmd() *cobra.Command {
	var (
		webServiceURL string
		token         string
	)
	cmd := &cobra.Command{
		Use:   "hash TEMPLATE",
		Short: "Validate a template package and print its content hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			p, err := pkpass.Read(data)
			if err != nil {
				return err
			}
			if err := p.SetWebServiceURL(strings.TrimRight(webServiceURL, "/")); err != nil {
				return err
			}
			if err := p.SetAuthenticationToken(token); err != nil {
				return err
			}
			if err := pkpass.Validate(p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s/%s %s\n", p.PassTypeIdentifier(), p.SerialNumber(), pkpass.Hash(p))
			return nil
		},
	}
	cmd.Flags().StringVar(&webServiceURL, "web-service-url", "https://api.haweb.org/passkit", "web service URL embedded in the pass")
	cmd.Flags().StringVar(&token, "token", placeholderToken, "authentication token embedded in the pass")
	return cmd
}
