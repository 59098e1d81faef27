// Command stereodepth processes calibrated stereo pairs into metric depth and
// supports scripted distance measurements between two pixels.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"github.com/depthward/stereodepth/calib"
	"github.com/depthward/stereodepth/measure"
	"github.com/depthward/stereodepth/mlstereo"
	"github.com/depthward/stereodepth/raster"
	"github.com/depthward/stereodepth/stereo"
)

var logger = golog.NewDevelopmentLogger("stereodepth")

func main() {
	if err := realMain(os.Args[1:]); err != nil {
		logger.Fatal(err)
	}
}

func realMain(args []string) error {
	flags := flag.NewFlagSet("stereodepth", flag.ContinueOnError)
	calibPath := flags.String("calib", "", "calibration parameter file (json or yaml)")
	configPath := flags.String("config", "", "pipeline config json (optional)")
	leftPath := flags.String("left", "", "left image")
	rightPath := flags.String("right", "", "right image")
	outDir := flags.String("out", "out", "output directory")
	modelCmd := flags.String("model", "", "external neural stereo runner for comparison (optional)")
	pickA := flags.String("pick-a", "", "first measurement pixel as x,y (optional)")
	pickB := flags.String("pick-b", "", "second measurement pixel as x,y (optional)")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *calibPath == "" || *leftPath == "" || *rightPath == "" {
		return fmt.Errorf("need -calib, -left and -right")
	}

	params, err := calib.NewStereoParamsFromFile(*calibPath)
	if err != nil {
		return err
	}
	cfg := stereo.DefaultConfig()
	if *configPath != "" {
		if err := loadConfig(*configPath, &cfg); err != nil {
			return err
		}
	}

	left, err := openImage(*leftPath)
	if err != nil {
		return err
	}
	right, err := openImage(*rightPath)
	if err != nil {
		return err
	}

	pipeline, err := stereo.NewPipeline(cfg, params, logger)
	if err != nil {
		return err
	}
	name := filepath.Base(*leftPath)
	res, err := pipeline.ProcessPair(stereo.Pair{Name: name, Left: left, Right: right})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return err
	}
	if err := writeOutputs(*outDir, res, cfg.MaxDepthMillimeters); err != nil {
		return err
	}

	if *modelCmd != "" {
		if err := compareWithModel(*modelCmd, res); err != nil {
			return err
		}
	}

	if *pickA != "" && *pickB != "" {
		return runMeasurement(*outDir, res, cfg.MeasureToleranceMeters, *pickA, *pickB)
	}
	return nil
}

func loadConfig(path string, cfg *stereo.Config) error {
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "reading config")
	}
	return json.Unmarshal(data, cfg)
}

func openImage(path string) (*raster.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	return raster.ConvertImage(img), nil
}

func writeOutputs(dir string, res *stereo.Result, maxMM uint16) error {
	if err := imaging.Save(res.RectifiedL, filepath.Join(dir, "rectified_left.png")); err != nil {
		return err
	}
	if err := imaging.Save(res.RectifiedR, filepath.Join(dir, "rectified_right.png")); err != nil {
		return err
	}
	if err := imaging.Save(res.Disparity.ToPrettyPicture(), filepath.Join(dir, "disparity.png")); err != nil {
		return err
	}
	if err := imaging.Save(res.DepthMM.ToPrettyPicture(0, maxMM), filepath.Join(dir, "depth_color.png")); err != nil {
		return err
	}
	if err := imaging.Save(res.DepthMM.ToGray16(), filepath.Join(dir, "depth_mm.png")); err != nil {
		return err
	}

	//nolint:gosec
	pcd, err := os.Create(filepath.Join(dir, "points.pcd"))
	if err != nil {
		return err
	}
	defer goutils.UncheckedErrorFunc(pcd.Close)
	return res.Points.ToPCD(pcd, res.RectifiedL)
}

func compareWithModel(command string, res *stereo.Result) error {
	predictor := &mlstereo.ExecPredictor{Command: command, Logger: logger}
	predicted, err := predictor.Predict(res.RectifiedL, res.RectifiedR)
	if err != nil {
		return err
	}
	cmp, err := stereo.CompareDisparities(res.Disparity, predicted)
	if err != nil {
		return err
	}
	logger.Infow("model comparison",
		"compared", cmp.ComparedPixels,
		"onlyPipeline", cmp.OnlyA,
		"onlyModel", cmp.OnlyB,
		"meanAbsDiff", cmp.MeanAbsDiff,
		"medianAbsDiff", cmp.MedianAbsDiff)
	return nil
}

func runMeasurement(dir string, res *stereo.Result, tolerance float64, pickA, pickB string) error {
	a, err := parsePixel(pickA)
	if err != nil {
		return err
	}
	b, err := parsePixel(pickB)
	if err != nil {
		return err
	}

	recorder, err := measure.NewFileRecorder(filepath.Join(dir, "measurements.jsonl"))
	if err != nil {
		return err
	}
	defer goutils.UncheckedErrorFunc(recorder.Close)

	session := measure.NewSession(res.Name, res.Points, tolerance, recorder, logger)
	if _, err := session.Pick(a); err != nil {
		return err
	}
	m, err := session.Pick(b)
	if err != nil {
		return err
	}
	overlay := measure.DrawMeasurement(res.RectifiedL, m)
	return imaging.Save(overlay, filepath.Join(dir, "measurement.png"))
}

func parsePixel(s string) (image.Point, error) {
	var p image.Point
	if _, err := fmt.Sscanf(s, "%d,%d", &p.X, &p.Y); err != nil {
		return p, errors.Wrapf(err, "bad pixel %q, want x,y", s)
	}
	return p, nil
}
