// Package porter drives the per-asset porting state machine and the
// batch over all assets named by the scene descriptions. One asset
// failing does not abort the batch: every job yields a Result value and
// failures are reported together at the end. Only a broken environment
// (missing toolchain files, missing installation roots) stops the batch
// immediately.
package porter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"go.uber.org/zap"

	"ed8port/internal/acquire"
	"ed8port/internal/packtools"
	"ed8port/internal/pipeline"
	"ed8port/internal/resolve"
	"ed8port/internal/shaderdb"
	"ed8port/internal/texture"
)

// Stage identifies a step of the per-asset state machine.
type Stage string

const (
	StagePending             Stage = "pending"
	StageStaged              Stage = "staged"
	StageUnpacked            Stage = "unpacked"
	StageMaterialsReplaced   Stage = "materials-replaced"
	StageTexturesProcessed   Stage = "textures-processed"
	StageRepacked            Stage = "repacked"
	StageFinalized           Stage = "finalized"
	StageSkipped             Stage = "skipped"               // output already exists
	StagePlatformGateSkipped Stage = "platform-gate-skipped" // repack toolchain unavailable on this OS
	StageFailed              Stage = "failed"
)

// terminalOK are the terminal states that count as success.
var terminalOK = map[Stage]bool{
	StageFinalized:           true,
	StageSkipped:             true,
	StagePlatformGateSkipped: true,
}

// Result is the outcome of one asset job. Failed jobs carry the stage
// that was being attempted, the error, and any captured collaborator
// output.
type Result struct {
	Asset    string
	State    Stage
	FailedAt Stage
	Err      error
	Log      string
}

// OK reports whether the job reached a successful terminal state.
func (r Result) OK() bool { return terminalOK[r.State] }

// Options configures a Porter.
type Options struct {
	SrcRoot      string // installation the assets are ported from
	DstRoot      string // installation supplying donor shaders
	OutDir       string
	WorkDir      string
	Profile      string // target-profile identifier for the similarity search
	MaxWorkers   int
	FlipTextures bool
}

// Toolchain is the external collaborator surface the porter needs.
// Satisfied by *packtools.Tools.
type Toolchain interface {
	acquire.Unpacker
	resolve.SimilaritySearcher
	StageToolFiles(assetDir string) error
	BuildCollada(ctx context.Context, assetDir string) error
	RunPacker(ctx context.Context, assetDir string) error
}

// Porter ports assets one at a time. The unpack pool inside each asset's
// shader-replacement phase is the only concurrency; the repack toolchain
// shares working directories and is not safe to run concurrently.
type Porter struct {
	opts    Options
	db      *shaderdb.DB
	tools   Toolchain
	flipper *texture.Flipper
	log     *zap.SugaredLogger
}

// New returns a Porter.
func New(opts Options, db *shaderdb.DB, tools Toolchain, flipper *texture.Flipper, log *zap.SugaredLogger) *Porter {
	return &Porter{opts: opts, db: db, tools: tools, flipper: flipper, log: log}
}

// fatal reports whether an error indicates a broken environment rather
// than a bad asset. These abort the whole batch.
func fatal(err error) bool {
	return errors.Is(err, packtools.ErrToolMissing) || errors.Is(err, shaderdb.ErrDatabaseMissing)
}

// Port runs the state machine for one asset.
func (p *Porter) Port(ctx context.Context, asset string) Result {
	res := Result{Asset: asset, State: StagePending}
	fail := func(at Stage, err error) Result {
		res.State = StageFailed
		res.FailedAt = at
		res.Err = err
		var execErr *packtools.ExecError
		if errors.As(err, &execErr) {
			res.Log = "stdout:\n" + execErr.Stdout + "\nstderr:\n" + execErr.Stderr
		}
		return res
	}

	pkgFile := asset + ".pkg"
	outPath := filepath.Join(p.opts.OutDir, pkgFile)
	if _, err := os.Stat(outPath); err == nil {
		p.log.Infof("skipping %s because it already exists in out dir", asset)
		res.State = StageSkipped
		return res
	}

	// Pending → Staged: locate the source package and copy it into the
	// per-run source staging directory.
	srcStore := acquire.NewStore(p.opts.SrcRoot, filepath.Join(p.opts.WorkDir, "src"), p.tools, p.log)
	staged, err := srcStore.Stage(pkgFile)
	if err != nil {
		return fail(StageStaged, err)
	}
	res.State = StageStaged

	// Staged → Unpacked.
	if err := srcStore.EnsureUnpacked(ctx, staged); err != nil {
		return fail(StageUnpacked, err)
	}
	res.State = StageUnpacked
	assetDir := acquire.UnpackedDir(staged)

	// Unpacked → MaterialsReplaced: run the shader pipeline against the
	// destination engine, with a per-asset donor work directory so
	// sibling jobs cannot interfere.
	p.log.Infof("Replacing shaders and materials for %s...", asset)
	donorWork := filepath.Join(p.opts.WorkDir, "dst-"+asset)
	dstStore := acquire.NewStore(p.opts.DstRoot, donorWork, p.tools, p.log)
	resolver := resolve.NewResolver(p.db, p.tools, donorWork, p.opts.Profile, p.log)
	repl := pipeline.NewReplacer(dstStore, resolver, p.opts.MaxWorkers, p.log)
	if err := repl.ReplaceMaterials(ctx, assetDir); err != nil {
		return fail(StageMaterialsReplaced, err)
	}
	res.State = StageMaterialsReplaced

	// The repack toolchain only runs on Windows. Elsewhere the job ends
	// here, successfully, with the replaced asset left in the work dir.
	if runtime.GOOS != "windows" {
		p.log.Infof("repack toolchain unavailable on %s, stopping %s after material replacement", runtime.GOOS, asset)
		res.State = StagePlatformGateSkipped
		return res
	}

	// MaterialsReplaced → TexturesProcessed (optional).
	if p.opts.FlipTextures {
		n, err := p.flipper.FlipAll(ctx, assetDir)
		if err != nil {
			return fail(StageTexturesProcessed, err)
		}
		p.log.Infof("flipped %d textures in %s", n, assetDir)
	}
	res.State = StageTexturesProcessed

	// TexturesProcessed → Repacked: stage the toolchain into the asset
	// dir, build the scene, then run the final packaging step.
	p.log.Infof("Packing asset %s...", asset)
	if err := p.tools.StageToolFiles(assetDir); err != nil {
		return fail(StageRepacked, err)
	}
	if err := p.tools.BuildCollada(ctx, assetDir); err != nil {
		return fail(StageRepacked, err)
	}
	if err := p.tools.RunPacker(ctx, assetDir); err != nil {
		return fail(StageRepacked, err)
	}
	res.State = StageRepacked

	// Repacked → Finalized.
	if err := packtools.CopyFile(filepath.Join(assetDir, pkgFile), outPath); err != nil {
		return fail(StageFinalized, fmt.Errorf("copy result package: %w", err))
	}
	p.log.Infof("finished packing %s", asset)
	res.State = StageFinalized
	return res
}

// PortAll runs the batch sequentially. Per-asset failures accumulate in
// the returned results; environment failures abort immediately with an
// error.
func (p *Porter) PortAll(ctx context.Context, assets []string) ([]Result, error) {
	var results []Result
	for _, asset := range assets {
		res := p.Port(ctx, asset)
		results = append(results, res)
		if res.Err != nil && fatal(res.Err) {
			return results, fmt.Errorf("environment broken, aborting batch: %w", res.Err)
		}
		if ctx.Err() != nil {
			return results, ctx.Err()
		}
	}
	return results, nil
}
