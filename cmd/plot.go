package cmd

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/chartloom/internal/chart"
	"github.com/KaramelBytes/chartloom/internal/render"
	"github.com/KaramelBytes/chartloom/internal/utils"
	"github.com/spf13/cobra"
)

var (
	plotX          string
	plotY          string
	plotKind       string
	plotOutputPath string
	plotEfficiency bool
	plotWidth      int
	plotHeight     int
	plotDelimiter  string
	plotDecimal    string
)

var plotCmd = &cobra.Command{
	Use:   "plot <file>",
	Short: "Render one chart of a readings CSV to PNG or SVG",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if plotX == "" || plotY == "" {
			return fmt.Errorf("--x and --y are required")
		}
		if plotOutputPath == "" {
			return fmt.Errorf("--output is required")
		}
		kind, err := chart.ParseKind(plotKind)
		if err != nil {
			return err
		}
		ds, err := prepareFile(args[0], plotDelimiter, plotDecimal)
		if err != nil {
			return err
		}
		res, err := chart.Render(ds, chart.Request{X: plotX, Y: plotY, Kind: kind})
		if err != nil {
			return err
		}

		c, err := currentConfig()
		if err != nil {
			return err
		}
		opt := render.Options{Width: c.ChartWidth, Height: c.ChartHeight}
		if cmd.Flags().Changed("width") {
			opt.Width = plotWidth
		}
		if cmd.Flags().Changed("height") {
			opt.Height = plotHeight
		}
		r, err := render.ForFormat(render.FormatFromPath(plotOutputPath), opt)
		if err != nil {
			return err
		}

		if err := writeChart(r, res.Chart, plotOutputPath); err != nil {
			return err
		}
		fmt.Printf("✓ Wrote %s to %s (%d rows)\n", kind.Label(), plotOutputPath, res.Rows)
		if plotEfficiency {
			effPath := efficiencyPath(plotOutputPath)
			if err := writeChart(r, res.Efficiency, effPath); err != nil {
				return err
			}
			fmt.Printf("✓ Wrote %s to %s\n", chart.EfficiencyTitle, effPath)
		}

		fmt.Println(res.Caption)
		fmt.Println(res.Summary)
		fmt.Println(chart.AverageRPMSentence(ds.AverageRPM))
		fmt.Println(chart.AverageRPMNote)
		if plotEfficiency {
			fmt.Println(res.EfficiencySummary)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(plotCmd)
	plotCmd.Flags().StringVar(&plotX, "x", "", "x-axis column")
	plotCmd.Flags().StringVar(&plotY, "y", "", "y-axis column")
	plotCmd.Flags().StringVar(&plotKind, "kind", "line", "chart kind: line|scatter|bar|area|histogram")
	plotCmd.Flags().StringVarP(&plotOutputPath, "output", "o", "", "output image path (.png or .svg)")
	plotCmd.Flags().BoolVar(&plotEfficiency, "efficiency", false, "also write the device-wise efficiency chart next to the output")
	plotCmd.Flags().IntVar(&plotWidth, "width", 960, "image width (overrides config)")
	plotCmd.Flags().IntVar(&plotHeight, "height", 480, "image height (overrides config)")
	plotCmd.Flags().StringVar(&plotDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab'")
	plotCmd.Flags().StringVar(&plotDecimal, "decimal", "", "decimal separator for numbers: '.'|'comma'")
}

func writeChart(r render.Renderer, s chart.Figure, path string) error {
	var buf bytes.Buffer
	if err := r.Render(&buf, s); err != nil {
		return err
	}
	if err := utils.SafeWriteFile(path, buf.Bytes()); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// efficiencyPath turns out/rpm.png into out/rpm.efficiency.png.
func efficiencyPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".efficiency" + ext
}
