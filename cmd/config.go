package cmd

import (
	"fmt"
	"strconv"
	"strings"

	cfgpkg "github.com/KaramelBytes/chartloom/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set Chartloom configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			fmt.Println("No config loaded")
			return nil
		}
		fmt.Printf("addr: %s\n", cfg.Addr)
		fmt.Printf("gin_mode: %s\n", cfg.GinMode)
		fmt.Printf("max_upload_mb: %d\n", cfg.MaxUploadMB)
		if len(cfg.CORSOrigins) > 0 {
			fmt.Printf("cors_origins: %s\n", strings.Join(cfg.CORSOrigins, ","))
		}
		fmt.Printf("session_ttl_min: %d\n", cfg.SessionTTLMin)
		fmt.Printf("max_sessions: %d\n", cfg.MaxSessions)
		if cfg.Delimiter != "" {
			fmt.Printf("delimiter: %q\n", cfg.Delimiter)
		}
		if cfg.Decimal != "" {
			fmt.Printf("decimal: %q\n", cfg.Decimal)
		}
		fmt.Printf("sample_rows: %d\n", cfg.SampleRows)
		fmt.Printf("chart_width: %d\n", cfg.ChartWidth)
		fmt.Printf("chart_height: %d\n", cfg.ChartHeight)
		fmt.Printf("log_level: %s\n", cfg.LogLevel)
		fmt.Printf("log_format: %s\n", cfg.LogFormat)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		c, err := currentConfig()
		if err != nil {
			return err
		}
		switch key {
		case "addr":
			c.Addr = val
		case "gin_mode":
			switch val {
			case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
				c.GinMode = val
			default:
				return fmt.Errorf("invalid gin_mode: %s (use debug, release or test)", val)
			}
		case "max_upload_mb", "session_ttl_min", "max_sessions", "sample_rows", "chart_width", "chart_height":
			i, err := strconv.Atoi(val)
			if err != nil || i < 0 {
				return fmt.Errorf("invalid int for %s: %v", key, val)
			}
			setInt(c, key, i)
		case "cors_origins":
			c.CORSOrigins = nil
			for _, o := range strings.Split(val, ",") {
				if o = strings.TrimSpace(o); o != "" {
					c.CORSOrigins = append(c.CORSOrigins, o)
				}
			}
		case "delimiter":
			probe := *c
			probe.Delimiter = val
			if _, err := probe.DelimiterRune(); err != nil {
				return err
			}
			c.Delimiter = val
		case "decimal":
			probe := *c
			probe.Decimal = val
			if _, err := probe.DecimalRune(); err != nil {
				return err
			}
			c.Decimal = val
		case "log_level":
			switch strings.ToLower(val) {
			case "debug", "info", "warn", "warning", "error":
				c.LogLevel = strings.ToLower(val)
			default:
				return fmt.Errorf("invalid log_level: %s (use debug, info, warn or error)", val)
			}
		case "log_format":
			switch strings.ToLower(val) {
			case "text", "json":
				c.LogFormat = strings.ToLower(val)
			default:
				return fmt.Errorf("invalid log_format: %s (use text or json)", val)
			}
		default:
			return fmt.Errorf("unknown key: %s", key)
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		fmt.Println("Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func setInt(c *cfgpkg.Global, key string, v int) {
	switch key {
	case "max_upload_mb":
		c.MaxUploadMB = v
	case "session_ttl_min":
		c.SessionTTLMin = v
	case "max_sessions":
		c.MaxSessions = v
	case "sample_rows":
		c.SampleRows = v
	case "chart_width":
		c.ChartWidth = v
	case "chart_height":
		c.ChartHeight = v
	}
}
