// Command ed8port ports packaged 3D assets between two incompatible
// versions of the engine's asset format. See the subcommands: replace,
// map-shaders, apply-map, port, db.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"ed8port/internal/config"
)

var (
	flagConfig  string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:           "ed8port",
	Short:         "Port packaged 3D assets between engine versions",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", config.DefaultFile, "config file")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug output")

	rootCmd.AddCommand(newReplaceCmd())
	rootCmd.AddCommand(newMapShadersCmd())
	rootCmd.AddCommand(newApplyMapCmd())
	rootCmd.AddCommand(newPortCmd())
	rootCmd.AddCommand(newDBCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}
}

// newLogger builds the console logger. Progress goes to stderr so tool
// output piped from collaborators stays separable.
func newLogger() *zap.SugaredLogger {
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	if !flagVerbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: init logger: %v\n", err)
		os.Exit(1)
	}
	return logger.Sugar()
}

// loadConfig reads the config file and lets changed flags override it.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return cfg, err
	}

	overrideString(cmd, "src-root", &cfg.SrcRoot)
	overrideString(cmd, "dst-root", &cfg.DstRoot)
	overrideString(cmd, "shader-db", &cfg.ShaderDB)
	overrideString(cmd, "work-dir", &cfg.WorkDir)
	overrideString(cmd, "out-dir", &cfg.OutDir)
	overrideString(cmd, "tools-dir", &cfg.ToolsDir)
	overrideString(cmd, "python", &cfg.Python)
	overrideInt(cmd, "max-workers", &cfg.MaxWorkers)
	overrideBool(cmd, "flip-textures", &cfg.FlipTextures)
	return cfg, nil
}

func overrideString(cmd *cobra.Command, name string, dst *string) {
	if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
		*dst = f.Value.String()
	}
}

func overrideInt(cmd *cobra.Command, name string, dst *int) {
	if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
		v, _ := cmd.Flags().GetInt(name)
		*dst = v
	}
}

func overrideBool(cmd *cobra.Command, name string, dst *bool) {
	if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
		v, _ := cmd.Flags().GetBool(name)
		*dst = v
	}
}
