package main

import (
	"github.com/spf13/cobra"

	"ed8port/internal/shaderdb"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Shader database maintenance",
	}
	cmd.AddCommand(newDBImportCmd())
	return cmd
}

func newDBImportCmd() *cobra.Command {
	var csvPath, outPath string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Compile the shader CSV into a SQLite index",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()
			defer log.Sync()

			n, err := shaderdb.ImportCSV(csvPath, outPath)
			if err != nil {
				return err
			}
			log.Infof("imported %d shaders from %s into %s", n, csvPath, outPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&csvPath, "csv", "all_shaders.csv", "shader CSV to import")
	cmd.Flags().StringVar(&outPath, "out", "all_shaders.db", "SQLite index to write")
	return cmd
}
