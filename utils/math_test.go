package utils

import (
	"math"
	"math/rand"
	"testing"

	"go.viam.com/test"
)

func TestMinMaxAbs(t *testing.T) {
	test.That(t, MaxInt(3, 7), test.ShouldEqual, 7)
	test.That(t, MaxInt(7, 3), test.ShouldEqual, 7)
	test.That(t, MinInt(3, 7), test.ShouldEqual, 3)
	test.That(t, MinInt(-2, 2), test.ShouldEqual, -2)
	test.That(t, AbsInt(-5), test.ShouldEqual, 5)
	test.That(t, AbsInt(5), test.ShouldEqual, 5)
	test.That(t, AbsInt(0), test.ShouldEqual, 0)
}

func TestClamp(t *testing.T) {
	test.That(t, Clamp(0.5, 0, 1), test.ShouldEqual, 0.5)
	test.That(t, Clamp(-0.5, 0, 1), test.ShouldEqual, 0.0)
	test.That(t, Clamp(1.5, 0, 1), test.ShouldEqual, 1.0)
}

func TestMedian(t *testing.T) {
	test.That(t, Median(3, 1, 2), test.ShouldEqual, 2)
	test.That(t, Median(7), test.ShouldEqual, 7)
	test.That(t, math.IsNaN(Median()), test.ShouldBeTrue)

	// the input must not be reordered
	vals := []float64{9, 1, 5}
	Median(vals...)
	test.That(t, vals, test.ShouldResemble, []float64{9, 1, 5})
}

func TestMakeRangeArray(t *testing.T) {
	test.That(t, MakeRangeArray(5), test.ShouldResemble, []int{-2, -1, 0, 1, 2})
	test.That(t, MakeRangeArray(4), test.ShouldResemble, []int{-2, -1, 0, 1})
	test.That(t, MakeRangeArray(1), test.ShouldResemble, []int{0})
	test.That(t, MakeRangeArray(0), test.ShouldResemble, []int{})
	test.That(t, MakeRangeArray(-2), test.ShouldResemble, []int{})
}

func TestSampleRandomIntRange(t *testing.T) {
	r := rand.New(rand.NewSource(91))
	for i := 0; i < 1000; i++ {
		n := SampleRandomIntRange(-3, 12, r)
		test.That(t, n, test.ShouldBeGreaterThanOrEqualTo, -3)
		test.That(t, n, test.ShouldBeLessThanOrEqualTo, 12)
	}
}
