package raster

import (
	"image"
	"math"

	"github.com/depthward/stereodepth/utils"
)

// GaussianFunction1D takes in a sigma and returns a gaussian function useful
// for weighing averages.
func GaussianFunction1D(sigma float64) func(p float64) float64 {
	if sigma <= 0. {
		return func(p float64) float64 {
			return 1.
		}
	}
	return func(p float64) float64 {
		return math.Exp(-0.5*math.Pow(p, 2)/math.Pow(sigma, 2)) / (sigma * math.Sqrt(2.*math.Pi))
	}
}

// GaussianFunction2D takes in a sigma and returns an isotropic 2D gaussian.
func GaussianFunction2D(sigma float64) func(p1, p2 float64) float64 {
	if sigma <= 0. {
		return func(p1, p2 float64) float64 {
			return 1.
		}
	}
	return func(p1, p2 float64) float64 {
		return math.Exp(-0.5*(p1*p1+p2*p2)/math.Pow(sigma, 2)) / (sigma * sigma * 2. * math.Pi)
	}
}

// JointBilateralDisparityFilter returns a filter that smooths a disparity
// value at p by weighing neighbor disparities with both spatial proximity and
// guidance-image color similarity. Invalid neighbors contribute nothing. The
// returned total weight is zero when no usable neighbor exists.
func JointBilateralDisparityFilter(spatialSigma, colorSigma float64) func(p image.Point, df *DisparityField, guide *Image) (float64, float64) {
	spatialFilter := GaussianFunction1D(spatialSigma)
	colorFilter := GaussianFunction1D(colorSigma)
	k := utils.MaxInt(3, 1+2*int(3.*spatialSigma))
	xRange, yRange := utils.MakeRangeArray(k), utils.MakeRangeArray(k)
	return func(p image.Point, df *DisparityField, guide *Image) (float64, float64) {
		pColor := guide.GetXY(p.X, p.Y)
		newDisparity := 0.0
		totalWeight := 0.0
		for _, dx := range xRange {
			for _, dy := range yRange {
				if !df.In(p.X+dx, p.Y+dy) || !df.IsValid(p.X+dx, p.Y+dy) {
					continue
				}
				d := float64(df.Get(p.X+dx, p.Y+dy))
				weight := spatialFilter(float64(dx)) * spatialFilter(float64(dy))
				weight *= colorFilter(pColor.DistanceLab(guide.GetXY(p.X+dx, p.Y+dy)))
				newDisparity += d * weight
				totalWeight += weight
			}
		}
		return newDisparity, totalWeight
	}
}

// JointTrilateralDisparityFilter is the confidence-aware variant of
// JointBilateralDisparityFilter: neighbor contributions are additionally
// scaled by their confidence so unreliable pixels do not pollute reliable
// ones. The returned total weight is zero when the neighborhood carries no
// confidence at all.
func JointTrilateralDisparityFilter(spatialSigma, colorSigma float64) func(p image.Point, df *DisparityField, cf *ConfidenceField, guide *Image) (float64, float64) {
	spatialFilter := GaussianFunction1D(spatialSigma)
	colorFilter := GaussianFunction1D(colorSigma)
	k := utils.MaxInt(3, 1+2*int(3.*spatialSigma))
	xRange, yRange := utils.MakeRangeArray(k), utils.MakeRangeArray(k)
	return func(p image.Point, df *DisparityField, cf *ConfidenceField, guide *Image) (float64, float64) {
		pColor := guide.GetXY(p.X, p.Y)
		newDisparity := 0.0
		totalWeight := 0.0
		for _, dx := range xRange {
			for _, dy := range yRange {
				if !df.In(p.X+dx, p.Y+dy) || !df.IsValid(p.X+dx, p.Y+dy) {
					continue
				}
				conf := cf.Get(p.X+dx, p.Y+dy)
				if conf == 0 {
					continue
				}
				d := float64(df.Get(p.X+dx, p.Y+dy))
				weight := spatialFilter(float64(dx)) * spatialFilter(float64(dy))
				weight *= colorFilter(pColor.DistanceLab(guide.GetXY(p.X+dx, p.Y+dy)))
				weight *= conf
				newDisparity += d * weight
				totalWeight += weight
			}
		}
		return newDisparity, totalWeight
	}
}
