package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/chartloom/internal/dataset"
	"github.com/KaramelBytes/chartloom/internal/utils"
	"github.com/spf13/cobra"
)

var (
	insOutputPath string
	insJSON       bool
	insSampleRows int
	insDelimiter  string
	insDecimal    string
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Prepare a readings CSV and print a summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := prepareFile(args[0], insDelimiter, insDecimal)
		if err != nil {
			return err
		}

		var out []byte
		if insJSON {
			out, err = utils.PrettyJSON(ds)
			if err != nil {
				return err
			}
		} else {
			rows := insSampleRows
			if !cmd.Flags().Changed("sample-rows") {
				if c, err := currentConfig(); err == nil && c.SampleRows > 0 {
					rows = c.SampleRows
				}
			}
			out = []byte(dataset.Summarize(ds, rows).Markdown())
		}

		if insOutputPath != "" {
			if err := utils.SafeWriteFile(insOutputPath, out); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Printf("✓ Wrote summary to %s\n", insOutputPath)
			return nil
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().StringVarP(&insOutputPath, "output", "o", "", "optional path to write the summary")
	inspectCmd.Flags().BoolVar(&insJSON, "json", false, "print the prepared dataset as JSON instead of Markdown")
	inspectCmd.Flags().IntVar(&insSampleRows, "sample-rows", 5, "number of sample rows to include")
	inspectCmd.Flags().StringVar(&insDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' (default from config, then file extension)")
	inspectCmd.Flags().StringVar(&insDecimal, "decimal", "", "decimal separator for numbers: '.'|'comma'")
}

// prepareFile reads and prepares path. Flag values win over config.
func prepareFile(path, delimiter, decimal string) (*dataset.Dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	opt := dataset.DefaultOptions()
	opt.Name = filepath.Base(path)

	c, err := currentConfig()
	if err != nil {
		return nil, err
	}
	if delimiter != "" {
		c2 := *c
		c2.Delimiter = delimiter
		c = &c2
	}
	if opt.Delimiter, err = c.DelimiterRune(); err != nil {
		return nil, err
	}
	switch strings.ToLower(strings.TrimSpace(decimal)) {
	case ",", "comma":
		opt.DecimalSeparator = ','
	case ".", "dot":
		opt.DecimalSeparator = '.'
	case "":
		if opt.DecimalSeparator, err = c.DecimalRune(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", decimal)
	}
	return dataset.Prepare(raw, opt)
}
