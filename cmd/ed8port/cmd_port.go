package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"ed8port/internal/config"
	"ed8port/internal/packtools"
	"ed8port/internal/porter"
	"ed8port/internal/shaderdb"
	"ed8port/internal/texture"
)

func newPortCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "port [tXXXX.ops ...]",
		Short: "Port every asset referenced by the given scene descriptions",
		Long: `Collects the assets referenced by the given .ops files (all .ops
files in the current directory when none are given) and runs the full
porting pipeline for each: stage, unpack, shader and material
replacement, optional texture flipping, repack. One asset failing does
not stop the batch; a consolidated failure report is written to the
output directory at the end.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()
			defer log.Sync()

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			srcRoot, err := config.EnsureRoot(cfg.SrcRoot, "source engine")
			if err != nil {
				return err
			}
			dstRoot, err := config.EnsureRoot(cfg.DstRoot, "destination engine")
			if err != nil {
				return err
			}

			opsFiles := args
			if len(opsFiles) == 0 {
				opsFiles, err = filepath.Glob("*.ops")
				if err != nil || len(opsFiles) == 0 {
					return fmt.Errorf("no .ops files given and none found in the current directory")
				}
			}
			assets, err := porter.CollectAssets(opsFiles)
			if err != nil {
				return err
			}
			log.Infof("porting %d asset(s) from %d ops file(s)", len(assets), len(opsFiles))

			db, err := shaderdb.Load(cfg.ShaderDB)
			if err != nil {
				return err
			}

			tools := packtools.New(cfg.ToolsDir, cfg.Python, log)
			flipper := texture.NewFlipper(cfg.TexConverter, log)
			p := porter.New(porter.Options{
				SrcRoot:      srcRoot,
				DstRoot:      dstRoot,
				OutDir:       cfg.OutDir,
				WorkDir:      cfg.WorkDir,
				Profile:      cfg.Profile,
				MaxWorkers:   cfg.MaxWorkers,
				FlipTextures: cfg.FlipTextures,
			}, db, tools, flipper, log)

			results, err := p.PortAll(cmd.Context(), assets)
			reportPath := filepath.Join(cfg.OutDir, porter.FailureReportFile)
			if werr := porter.WriteReport(reportPath, results); werr != nil {
				log.Warnf("%v", werr)
			}
			if err != nil {
				return err
			}
			if failed := porter.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d of %d asset(s) failed, see %s", len(failed), len(results), reportPath)
			}
			log.Infof("all %d asset(s) ported", len(results))
			return nil
		},
	}

	cmd.Flags().String("src-root", "", "root directory of the source engine installation")
	cmd.Flags().String("dst-root", "", "root directory of the destination engine installation")
	cmd.Flags().String("shader-db", "", "shader database (CSV or SQLite)")
	cmd.Flags().String("out-dir", "", "where to store the ported packages")
	cmd.Flags().String("work-dir", "", "temporary working directory")
	cmd.Flags().String("tools-dir", "", "directory containing the (un)pack tools")
	cmd.Flags().String("python", "", "python interpreter for the toolchain scripts")
	cmd.Flags().Int("max-workers", 0, "maximum parallel unpack workers")
	cmd.Flags().Bool("flip-textures", false, "vertically flip textures before repacking")
	return cmd
}
