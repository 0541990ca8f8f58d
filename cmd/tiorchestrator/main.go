// Command tiorchestrator is the pipeline entrypoint: load a subject and a
// run configuration, then execute one of the three pipelines (simulate,
// ex-search, flex-search) against them, narrating progress the way the
// teacher's CLI prints its own numbered processing steps.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/simnibs/ti-orchestrator/internal/progress"
	"github.com/simnibs/ti-orchestrator/pkg/analyzer"
	"github.com/simnibs/ti-orchestrator/pkg/config"
	"github.com/simnibs/ti-orchestrator/pkg/electrode"
	"github.com/simnibs/ti-orchestrator/pkg/exsearch"
	"github.com/simnibs/ti-orchestrator/pkg/fe"
	"github.com/simnibs/ti-orchestrator/pkg/fe/memfe"
	"github.com/simnibs/ti-orchestrator/pkg/flexsearch"
	"github.com/simnibs/ti-orchestrator/pkg/geo"
	"github.com/simnibs/ti-orchestrator/pkg/layout"
	"github.com/simnibs/ti-orchestrator/pkg/leadfield"
	"github.com/simnibs/ti-orchestrator/pkg/simulator"
	"github.com/simnibs/ti-orchestrator/pkg/subject"
)

func main() {
	mode := flag.String("mode", "", "simulate | exsearch | flexsearch")
	projectRoot := flag.String("project", ".", "BIDS derivatives project root")
	subjectID := flag.String("subject", "", "subject id (without sub- prefix)")
	configPath := flag.String("config", "", "run configuration YAML path")
	netName := flag.String("net", "", "EEG net CSV filename under m2m_<id>/eeg_positions/")
	montageName := flag.String("montage", "montage", "simulation output name")
	ch1 := flag.String("ch1", "", "simulate/exsearch: channel 1 anode,cathode labels")
	ch2 := flag.String("ch2", "", "simulate/exsearch: channel 2 anode,cathode labels")
	pool1a := flag.String("pool1a", "", "exsearch: channel 1 anode candidate pool (comma separated)")
	pool1b := flag.String("pool1b", "", "exsearch: channel 1 cathode candidate pool")
	pool2a := flag.String("pool2a", "", "exsearch: channel 2 anode candidate pool")
	pool2b := flag.String("pool2b", "", "exsearch: channel 2 cathode candidate pool")
	breakSymmetry := flag.Bool("break-symmetry", true, "exsearch: drop permutation-equivalent candidates")
	roiFlag := flag.String("roi", "", "sphere:x,y,z,r or atlas:name:region; empty means whole head")
	flag.Parse()

	rep := progress.New(os.Stdout)
	ctx := context.Background()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("loading configuration: %v", err)
	}
	rep.Step("Loaded configuration from %s (goal=%s, conductivity=%s)", *configPath, cfg.Goal, cfg.ConductivityProfile)

	lib := memfe.New()
	net, err := loadNet(*netName)
	if err != nil {
		log.Fatalf("loading net %q: %v", *netName, err)
	}
	subj, err := subject.Load(ctx, lib, *subjectID, map[string]subject.NetTable{net.Name: net})
	if err != nil {
		log.Fatalf("loading subject %q: %v", *subjectID, err)
	}
	rep.Step("Loaded subject %q with net %q (%d electrodes)", subj.ID, net.Name, len(net.Order))

	proj := layout.Project{Root: *projectRoot}
	spec := electrode.FromConfig(cfg, electrodeGelConductivity)
	conductivity := defaultConductivity()

	switch *mode {
	case "simulate":
		runSimulate(ctx, rep, lib, proj, subj, net, spec, conductivity, cfg, *montageName, *ch1, *ch2)
	case "exsearch":
		runExSearch(ctx, rep, lib, proj, subj, net, cfg, *pool1a, *pool1b, *pool2a, *pool2b, *breakSymmetry, *roiFlag)
	case "flexsearch":
		runFlexSearch(ctx, rep, lib, proj, subj, net, spec, conductivity, cfg, *roiFlag)
	default:
		log.Fatalf("unknown -mode %q (want simulate, exsearch, or flexsearch)", *mode)
	}
}

// electrodeGelConductivity is the standard conductive-gel conductivity
// (S/m) used when the configuration doesn't separately specify one.
const electrodeGelConductivity = 1.4

func defaultConductivity() fe.ConductivityModel {
	return fe.ConductivityModel{
		Isotropic: map[int]float64{
			memfe.TissueWhiteMatter: 0.126,
			memfe.TissueGreyMatter:  0.275,
			memfe.TissueCSF:         1.654,
			memfe.TissueSkull:       0.010,
			memfe.TissueScalp:       0.465,
		},
	}
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return config.Config{}, err
	}
	return config.Load(data)
}

func loadNet(path string) (subject.NetTable, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return subject.NetTable{}, err
	}
	name := path
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		name = path[idx+1:]
	}
	return subject.ParseNetCSV(name, string(content))
}

func splitLabels(csv string) []string {
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseROI(raw string) *analyzer.ROI {
	if raw == "" {
		return nil
	}
	fields := strings.SplitN(raw, ":", 3)
	switch fields[0] {
	case "sphere":
		coords := strings.Split(fields[1], ",")
		if len(coords) != 4 {
			log.Fatalf("roi sphere needs x,y,z,r, got %q", fields[1])
		}
		vals := make([]float64, 4)
		for i, c := range coords {
			v, err := strconv.ParseFloat(strings.TrimSpace(c), 64)
			if err != nil {
				log.Fatalf("roi sphere: invalid coordinate %q: %v", c, err)
			}
			vals[i] = v
		}
		return &analyzer.ROI{
			Kind: analyzer.SphereROI,
			Sphere: geo.Sphere{
				Center: r3.Vec{X: vals[0], Y: vals[1], Z: vals[2]},
				Radius: vals[3],
				Space:  geo.Subject,
			},
		}
	case "atlas":
		if len(fields) != 3 {
			log.Fatalf("roi atlas needs atlas:name:region, got %q", raw)
		}
		return &analyzer.ROI{Kind: analyzer.AtlasROI, AtlasName: fields[1], Region: fields[2]}
	default:
		log.Fatalf("unknown roi kind %q", fields[0])
		return nil
	}
}

func runSimulate(ctx context.Context, rep *progress.Reporter, lib fe.Library, proj layout.Project, subj *subject.Subject, net subject.NetTable, spec electrode.Spec, conductivity fe.ConductivityModel, cfg config.Config, name, ch1, ch2 string) {
	a1 := splitLabels(ch1)
	a2 := splitLabels(ch2)
	if len(a1) != 2 || len(a2) != 2 {
		log.Fatalf("simulate: -ch1 and -ch2 each need exactly two labels (anode,cathode)")
	}
	i1, i2 := cfg.Intensities[0], cfg.Intensities[0]
	if len(cfg.Intensities) > 1 {
		i2 = cfg.Intensities[1]
	}
	montage := electrode.SimplePairMontage(name, net.Name, a1[0], a1[1], i1, a2[0], a2[1], i2)

	result, err := simulator.Run(ctx, lib, proj, subj, montage, spec, conductivity, cfg.Overwrite, rep)
	if err != nil {
		log.Fatalf("simulate: %v", err)
	}
	fmt.Printf("\nWrote %d output file(s) for simulation %q\n", len(result.WrittenPaths), result.Name)
}

func runExSearch(ctx context.Context, rep *progress.Reporter, lib fe.Library, proj layout.Project, subj *subject.Subject, net subject.NetTable, cfg config.Config, pool1a, pool1b, pool2a, pool2b string, breakSymmetry bool, roi string) {
	mesh, err := subj.Mesh(ctx)
	if err != nil {
		log.Fatalf("exsearch: %v", err)
	}

	fp := leadfield.Fingerprint{
		SubjectID:                  subj.ID,
		NetName:                    net.Name,
		SolverVersion:              "memfe-v1",
		ElectrodeConventionVersion: "v1",
		ReferenceElectrode:         net.Order[0],
	}
	cache := leadfield.NewCache(proj.LeadfieldDir(subj.ID, net.Name), lib, defaultConductivity())
	lf, err := cache.Get(ctx, subj, net, fp, 5*time.Minute)
	if err != nil {
		log.Fatalf("exsearch: building leadfield: %v", err)
	}
	rep.Step("Leadfield ready for net %q (%d electrodes x %d nodes)", net.Name, len(net.Order), mesh.NumNodes())

	an := analyzer.New(lib, subj.ID)
	params := exsearch.Params{
		PoolL1A: splitLabels(pool1a), PoolL1B: splitLabels(pool1b),
		PoolL2A: splitLabels(pool2a), PoolL2B: splitLabels(pool2b),
		CurrentTotal: cfg.CurrentTotal, CurrentStep: cfg.CurrentStep,
		BreakSymmetry: breakSymmetry, Goal: cfg.Goal, TopK: cfg.TopK,
		ROI: parseROI(roi),
	}
	report, err := exsearch.Run(ctx, lf, mesh, subjectSpace(cfg), subj.AffineToMNI, an, net, params)
	if err != nil {
		log.Fatalf("exsearch: %v", err)
	}
	rep.Done("Ranked %d of %d candidates considered (%d failed)", len(report.Ranked), report.Considered, report.Failed)

	session := uuid.NewString()
	for i, ev := range report.Ranked {
		line := exsearch.Summary(ev)
		fmt.Printf("%2d. %s\n", i+1, line)

		tag := fmt.Sprintf("%s_%s_%s_%s", ev.Candidate.A, ev.Candidate.B, ev.Candidate.C, ev.Candidate.D)
		dir := proj.ExSearchCandidateDir(subj.ID, session, tag)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("exsearch: creating candidate directory: %v", err)
		}
		if err := os.WriteFile(filepath.Join(dir, "summary.txt"), []byte(line+"\n"), 0o644); err != nil {
			log.Fatalf("exsearch: writing candidate summary: %v", err)
		}
	}
}

func runFlexSearch(ctx context.Context, rep *progress.Reporter, lib fe.Library, proj layout.Project, subj *subject.Subject, net subject.NetTable, spec electrode.Spec, conductivity fe.ConductivityModel, cfg config.Config, roi string) {
	mesh, err := subj.Mesh(ctx)
	if err != nil {
		log.Fatalf("flexsearch: %v", err)
	}
	center := subject.ScalpCenter(mesh, memfe.TissueScalp)
	radius := subject.ScalpRadius(mesh, memfe.TissueScalp, center)

	an := analyzer.New(lib, subj.ID)
	i1, i2 := cfg.Intensities[0], cfg.Intensities[0]
	if len(cfg.Intensities) > 1 {
		i2 = cfg.Intensities[1]
	}
	eval := &flexsearch.Evaluator{
		Lib: lib, Mesh: mesh, MeshSpace: subjectSpace(cfg), Affine: subj.AffineToMNI,
		ScalpCenter: center, ScalpRadius: radius, Spec: spec, Conductivity: conductivity,
		Current1MA: i1, Current2MA: i2, Analyzer: an, ROI: parseROI(roi), Goal: cfg.Goal,
	}
	rep.Step("Starting flex-search optimization (population=%d, max_iterations=%d)", cfg.Optimizer.PopulationSize, cfg.Optimizer.MaxIterations)
	result := flexsearch.Run(ctx, eval, cfg.Optimizer, &net)
	rep.Done("Flex-search complete after %d generations, %d evaluations (cancelled=%v)", result.Generations, result.Evaluations, result.Cancelled)
	fmt.Printf("Goal value: %.6g\n", result.GoalValue)

	session := uuid.NewString()
	dir := proj.FlexSearchSessionDir(subj.ID, session)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Fatalf("flexsearch: creating session directory: %v", err)
	}
	var body strings.Builder
	fmt.Fprintf(&body, "goal_value=%.6g generations=%d evaluations=%d cancelled=%v\n",
		result.GoalValue, result.Generations, result.Evaluations, result.Cancelled)
	for i, m := range result.Mapped {
		line := fmt.Sprintf("electrode %d -> %s at %.1fmm (degenerate=%v)", i, m.Label, m.DistanceMM, m.Degenerate)
		fmt.Println(line)
		fmt.Fprintln(&body, line)
	}
	if err := os.WriteFile(filepath.Join(dir, "result.txt"), []byte(body.String()), 0o644); err != nil {
		log.Fatalf("flexsearch: writing session result: %v", err)
	}
}

func subjectSpace(cfg config.Config) geo.Space {
	if cfg.CoordinateSpace == config.SpaceMNI {
		return geo.MNI
	}
	return geo.Subject
}

