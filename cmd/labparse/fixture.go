package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/labparse/internal/fixture"
)

var fixtureForce bool

var fixtureCmd = &cobra.Command{
	Use:   "fixture [path]",
	Short: "Generate the sample lab report image",
	Long: `Draw the sample SafeHealth Medical Lab report (John Doe, four tests with
reference ranges) as an 800x600 PNG. Useful for trying the pipeline without a
real scan.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := fixture.DefaultFile
		if len(args) == 1 {
			path = args[0]
		}

		if fixtureForce {
			if err := fixture.Generate(path); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		}

		created, err := fixture.Ensure(path)
		if err != nil {
			return err
		}
		if !created {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

func init() {
	fixtureCmd.Flags().BoolVar(&fixtureForce, "force", false, "overwrite an existing file")

	rootCmd.AddCommand(fixtureCmd)
}
