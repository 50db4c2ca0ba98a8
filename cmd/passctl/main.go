// Command passctl is the operator CLI of pass-service.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "passctl",
		Short:         "pass-service operator tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newGenCertCmd(), newRegisterCmd(), newHashCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logrus.WithError(err).Error("passctl")
		os.Exit(1)
	}
}
