package mlstereo

import (
	"context"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"github.com/depthward/stereodepth/raster"
)

// ExecPredictor shells out to an external model runner. The runner is invoked
// as `command [args...] <left.png> <right.png> <out.png>` and must write the
// predicted disparity as a 16-bit grayscale PNG in the fixed-point encoding
// of DecodeDisparityImage.
type ExecPredictor struct {
	Command string
	Args    []string
	Timeout time.Duration
	Logger  golog.Logger
}

// Predict implements Predictor.
func (ep *ExecPredictor) Predict(left, right *raster.Image) (*raster.DisparityField, error) {
	dir, err := os.MkdirTemp("", "mlstereo")
	if err != nil {
		return nil, err
	}
	defer goutils.UncheckedErrorFunc(func() error { return os.RemoveAll(dir) })

	leftPath := filepath.Join(dir, "left.png")
	rightPath := filepath.Join(dir, "right.png")
	outPath := filepath.Join(dir, "disparity.png")
	if err := writePNG(leftPath, left); err != nil {
		return nil, err
	}
	if err := writePNG(rightPath, right); err != nil {
		return nil, err
	}

	ctx := context.Background()
	if ep.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ep.Timeout)
		defer cancel()
	}
	args := append(append([]string{}, ep.Args...), leftPath, rightPath, outPath)
	//nolint:gosec
	cmd := exec.CommandContext(ctx, ep.Command, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, errors.Wrapf(err, "model runner failed: %s", string(output))
	}
	if ep.Logger != nil {
		ep.Logger.Debugw("model runner finished", "command", ep.Command)
	}

	//nolint:gosec
	f, err := os.Open(outPath)
	if err != nil {
		return nil, errors.Wrap(err, "model runner produced no disparity image")
	}
	defer goutils.UncheckedErrorFunc(f.Close)
	img, err := png.Decode(f)
	if err != nil {
		return nil, errors.Wrap(err, "decoding predicted disparity")
	}
	df, err := DecodeDisparityImage(img)
	if err != nil {
		return nil, err
	}
	if df.Width() != left.Width() || df.Height() != left.Height() {
		return nil, errors.Errorf("predicted disparity size (%d,%d) does not match input (%d,%d)",
			df.Width(), df.Height(), left.Width(), left.Height())
	}
	return df, nil
}

func writePNG(path string, img *raster.Image) error {
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer goutils.UncheckedErrorFunc(f.Close)
	return png.Encode(f, img)
}
