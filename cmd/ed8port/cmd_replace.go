package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ed8port/internal/acquire"
	"ed8port/internal/config"
	"ed8port/internal/material"
	"ed8port/internal/packtools"
	"ed8port/internal/pipeline"
	"ed8port/internal/resolve"
	"ed8port/internal/shaderdb"
)

// addReplaceFlags registers the flags shared by replace and map-shaders.
func addReplaceFlags(cmd *cobra.Command) {
	cmd.Flags().String("asset-dir", "", "directory of the unpacked asset to process (required)")
	cmd.Flags().String("dst-root", "", "root directory of the destination engine installation")
	cmd.Flags().String("shader-db", "", "shader database (CSV or SQLite)")
	cmd.Flags().String("work-dir", "", "temporary working directory")
	cmd.Flags().String("tools-dir", "", "directory containing the (un)pack tools")
	cmd.Flags().String("python", "", "python interpreter for the toolchain scripts")
	cmd.Flags().Int("max-workers", 0, "maximum parallel unpack workers")
	cmd.MarkFlagRequired("asset-dir")
}

// buildReplacer wires the shader-replacement pipeline from the config.
func buildReplacer(cmd *cobra.Command, log *zap.SugaredLogger) (*pipeline.Replacer, string, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, "", err
	}

	assetDir, _ := cmd.Flags().GetString("asset-dir")
	if info, err := os.Stat(assetDir); err != nil || !info.IsDir() {
		return nil, "", fmt.Errorf("asset directory %q not found", assetDir)
	}

	dstRoot, err := config.EnsureRoot(cfg.DstRoot, "destination engine")
	if err != nil {
		return nil, "", err
	}

	db, err := shaderdb.Load(cfg.ShaderDB)
	if err != nil {
		return nil, "", err
	}
	log.Infof("loaded %d shaders from %s", db.Len(), cfg.ShaderDB)

	tools := packtools.New(cfg.ToolsDir, cfg.Python, log)
	store := acquire.NewStore(dstRoot, cfg.WorkDir, tools, log)
	resolver := resolve.NewResolver(db, tools, cfg.WorkDir, cfg.Profile, log)
	return pipeline.NewReplacer(store, resolver, cfg.MaxWorkers, log), assetDir, nil
}

func newReplaceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replace",
		Short: "Replace an unpacked asset's shaders and merge donor materials",
		Long: `Resolves every shader referenced by an already-unpacked asset to a
compatible donor shader of the destination engine, unpacks the donor
packages, copies the replacement shader files into the asset directory
and merges the donor material definitions into the asset's metadata.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()
			defer log.Sync()

			repl, assetDir, err := buildReplacer(cmd, log)
			if err != nil {
				return err
			}
			if err := repl.ReplaceMaterials(cmd.Context(), assetDir); err != nil {
				return err
			}
			log.Infof("replaced shaders and materials in %s", assetDir)
			return nil
		},
	}
	addReplaceFlags(cmd)
	return cmd
}

func newApplyMapCmd() *cobra.Command {
	var mappingPath string
	cmd := &cobra.Command{
		Use:   "apply-map",
		Short: "Apply a recorded shader mapping table to an asset's metadata",
		Long: `Replays a mapping table produced by map-shaders (or edited by hand)
against an unpacked asset: rewrites the shader references, copies the
replacement shader files from the recorded donor locations and merges
the donor material definitions. Neither the shader database nor the
similarity search is consulted, so manual overrides in the table stick.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()
			defer log.Sync()

			assetDir, _ := cmd.Flags().GetString("asset-dir")
			if info, err := os.Stat(assetDir); err != nil || !info.IsDir() {
				return fmt.Errorf("asset directory %q not found", assetDir)
			}
			mappings, err := resolve.ReadMappingCSV(mappingPath)
			if err != nil {
				return err
			}
			metaPath := filepath.Join(assetDir, pipeline.MetadataFile)
			if err := material.ReplaceMaterials(metaPath, mappings, assetDir, log); err != nil {
				return err
			}
			log.Infof("applied %d mapping(s) to %s", len(mappings), assetDir)
			return nil
		},
	}
	cmd.Flags().String("asset-dir", "", "directory of the unpacked asset to process (required)")
	cmd.Flags().StringVar(&mappingPath, "mapping", pipeline.MappingFile, "mapping table to apply (orig,closest,asset)")
	cmd.MarkFlagRequired("asset-dir")
	return cmd
}

func newMapShadersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "map-shaders",
		Short: "Resolve an asset's shaders and record the mapping table",
		Long: `Runs the same shader resolution as replace but stops short of
touching materials: the resolved shader files are copied into the asset
directory and the orig,closest,asset mapping table is written to the
working directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()
			defer log.Sync()

			repl, assetDir, err := buildReplacer(cmd, log)
			if err != nil {
				return err
			}
			csvPath, err := repl.MapShaders(cmd.Context(), assetDir)
			if err != nil {
				return err
			}
			log.Infof("shader mapping written to %s", csvPath)
			return nil
		},
	}
	addReplaceFlags(cmd)
	return cmd
}
