// Command pointbake decodes a point-cloud dump into texture atlases,
// preview plots and, optionally, an indexed mesh.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/banshee-data/pointbake/internal/config"
	"github.com/banshee-data/pointbake/internal/db"
	"github.com/banshee-data/pointbake/internal/monitoring"
	"github.com/banshee-data/pointbake/internal/pointcloud/atlas"
	"github.com/banshee-data/pointbake/internal/pointcloud/bake"
	"github.com/banshee-data/pointbake/internal/pointcloud/decode"
	"github.com/banshee-data/pointbake/internal/pointcloud/mesh"
	"github.com/banshee-data/pointbake/internal/preview"
	"github.com/banshee-data/pointbake/internal/version"
)

var (
	dumpDir     = flag.String("dump", "", "Dump directory containing view.json (required)")
	outDir      = flag.String("out", "bake-out", "Output directory for baked files")
	configPath  = flag.String("config", "", "Bake config JSON (defaults apply when empty)")
	dbPath      = flag.String("db", "", "SQLite cache to store the baked atlas in (disabled when empty)")
	withMesh    = flag.Bool("mesh", false, "Also decode triangles and assemble a mesh")
	debug       = flag.Bool("debug", false, "Enable debug logging")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

// job is one bake invocation.
type job struct {
	dump   string
	out    string
	dbPath string
	mesh   bool
	cfg    *config.BakeConfig
}

// result summarises what a job produced.
type result struct {
	Atlas   *atlas.PointAtlas
	Mesh    *mesh.Mesh
	Files   []string
	AtlasID string
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}
	if *dumpDir == "" {
		log.Fatal("-dump is required")
	}
	monitoring.SetDebug(*debug)

	cfg := config.EmptyBakeConfig()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadBakeConfig(*configPath); err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	res, err := run(context.Background(), job{
		dump:   *dumpDir,
		out:    *outDir,
		dbPath: *dbPath,
		mesh:   *withMesh,
		cfg:    cfg,
	})
	if err != nil {
		log.Fatalf("bake failed: %v", err)
	}

	s := res.Atlas.Summarize()
	log.Printf("Baked %d points into %dx%d atlas; centroid (%.3f, %.3f, %.3f), spread (%.3f, %.3f, %.3f)",
		s.PointCount, s.Width, s.Width,
		s.Centroid[0], s.Centroid[1], s.Centroid[2],
		s.StdDev[0], s.StdDev[1], s.StdDev[2])
	if res.Mesh != nil {
		log.Printf("Mesh: %d vertices, %d triangles", len(res.Mesh.Vertices), len(res.Mesh.Triangles))
	}
	if res.AtlasID != "" {
		log.Printf("Cached as %s in %s", res.AtlasID, *dbPath)
	}
	for _, f := range res.Files {
		log.Printf("Wrote %s", f)
	}
}

func run(ctx context.Context, j job) (*result, error) {
	view, err := bake.LoadDump(j.dump)
	if err != nil {
		return nil, err
	}
	baker := bake.NewBaker(j.cfg)

	ctx, cancel := context.WithTimeout(ctx, j.cfg.GetWaitTimeout())
	defer cancel()

	atlasF := baker.BakePointCloudAsync(view)
	var meshF *bake.Future[*mesh.Mesh]
	if j.mesh {
		// Vertices come from the atlas, so the points are decoded once.
		meshF = bake.Go(func() (*mesh.Mesh, error) {
			a, err := atlasF.Wait(ctx)
			if err != nil {
				return nil, err
			}
			return baker.BakeMeshFromAtlas(view, a)
		})
	}

	res := &result{}
	if res.Atlas, err = atlasF.Wait(ctx); err != nil {
		return nil, err
	}
	if meshF != nil {
		m, err := meshF.Wait(ctx)
		switch {
		case errors.Is(err, bake.ErrNoMesh):
			monitoring.Logf("%s has no mesh data, skipping mesh", view.Name)
		case err != nil:
			return nil, err
		default:
			if err := m.Validate(); err != nil {
				return nil, fmt.Errorf("mesh: %w", err)
			}
			res.Mesh = m
		}
	}

	if err := os.MkdirAll(j.out, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	if res.Files, err = writeOutputs(j, res.Atlas); err != nil {
		return nil, err
	}

	if j.dbPath != "" {
		if res.AtlasID, err = cache(j.dbPath, view.Name, res.Atlas, res.Mesh); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func writeOutputs(j job, a *atlas.PointAtlas) ([]string, error) {
	if a.Empty() {
		monitoring.Logf("atlas is empty, nothing to export")
		return nil, nil
	}
	extended := j.cfg.GetWebPExtended()
	outputs := []struct {
		name  string
		write func(io.Writer) error
	}{
		{"color.webp", func(w io.Writer) error { return a.EncodeColorWebP(w, extended) }},
		{"color_thumb.webp", func(w io.Writer) error { return a.EncodeThumbnailWebP(w, j.cfg.GetThumbnailSize(), extended) }},
		{"position.tiff", a.EncodePositionTIFF},
		{"position.f16", a.WriteHalfPositions},
	}
	if j.cfg.GetThumbnailSize() == 0 {
		outputs = append(outputs[:1], outputs[2:]...)
	}

	var files []string
	for _, o := range outputs {
		path := filepath.Join(j.out, o.name)
		if err := writeFile(path, o.write); err != nil {
			return files, err
		}
		files = append(files, path)
	}

	plots, err := preview.NewPlotter(j.cfg.GetPreviewSizeInches()).SaveAll(j.out, a)
	files = append(files, plots...)
	if err != nil {
		return files, err
	}
	return files, nil
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	if err := write(f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func cache(path, name string, a *atlas.PointAtlas, m *mesh.Mesh) (string, error) {
	database, err := db.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open cache: %w", err)
	}
	defer database.Close()

	store := db.NewAtlasStore(database)
	id, err := store.SaveAtlas(name, a)
	if err != nil {
		return "", err
	}
	if m != nil {
		if err := store.SaveTriangles(id, decode.TriangleBuffer(m.Triangles)); err != nil {
			return id, err
		}
	}
	return id, nil
}
