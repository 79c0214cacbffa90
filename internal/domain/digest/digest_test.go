package digest_test

import (
	"math"
	"regexp"
	"testing"

	"github.com/okian/fedagg/internal/domain/digest"
	. "github.com/smartystreets/goconvey/convey"
)

var hexDigest = regexp.MustCompile(`^[0-9a-f]{64}$`)

func TestFormatFloat(t *testing.T) {
	Convey("Given the canonical float text rule", t, func() {
		cases := []struct {
			in   float64
			want string
		}{
			{0.3, "0.3"},
			{1.0, "1.0"},
			{100.0, "100.0"},
			{0, "0.0"},
			{math.Copysign(0, -1), "-0.0"},
			{-2.5, "-2.5"},
			{0.0001, "0.0001"},
			{-0.000123, "-0.000123"},
			{1e-05, "1e-05"},
			{1e-07, "1e-07"},
			{1e15, "1000000000000000.0"},
			{1e16, "1e+16"},
			{1.5e16, "1.5e+16"},
			{12345678901234567.0, "1.2345678901234568e+16"},
			{1e300, "1e+300"},
			{5e-324, "5e-324"},
			{0.1 + 0.2, "0.30000000000000004"},
			{math.NaN(), "NaN"},
			{math.Inf(1), "Infinity"},
			{math.Inf(-1), "-Infinity"},
		}

		for _, c := range cases {
			So(digest.FormatFloat(c.in), ShouldEqual, c.want)
		}
	})
}

func TestRound(t *testing.T) {
	Convey("Given values to round to eight places", t, func() {
		So(digest.Round(0.30000000000000004, 8), ShouldEqual, 0.3)
		So(digest.Round(123456789.123456789, 8), ShouldEqual, 123456789.12345679)
		So(digest.Round(2.5e-9, 8), ShouldEqual, 0.0)
		So(digest.Round(5e-9, 8), ShouldEqual, 1e-08)
		So(digest.Round(1.5e-08, 8), ShouldEqual, 1e-08)
		So(math.Signbit(digest.Round(-1e-9, 8)), ShouldBeTrue)
		So(math.IsNaN(digest.Round(math.NaN(), 8)), ShouldBeTrue)
		So(math.IsInf(digest.Round(math.Inf(1), 8), 1), ShouldBeTrue)
	})
}

func TestCanonical(t *testing.T) {
	Convey("Given a vector", t, func() {
		v := []float64{1.0, math.Copysign(0, -1), 1e-05, 0.0001, 1e16, 123456789.123456789, 2.5e-9, 5e-9, 1.5e-08}

		Convey("When rendering the canonical payload", func() {
			payload := string(digest.Canonical(v))

			Convey("Then it is a compact array of rounded canonical floats", func() {
				So(payload, ShouldEqual, "[1.0,-0.0,1e-05,0.0001,1e+16,123456789.12345679,0.0,1e-08,1e-08]")
			})
		})

		Convey("When the vector is empty", func() {
			So(string(digest.Canonical(nil)), ShouldEqual, "[]")
		})
	})
}

func TestSum(t *testing.T) {
	Convey("Given known vectors", t, func() {
		Convey("Then digests match the reference values", func() {
			So(digest.Sum([]float64{0.3, 0.4}), ShouldEqual,
				"f315c226b60dcb618eb0884f54b391ac2dd907817587b0476f3d724e0d74dcde")
			So(digest.Sum([]float64{1.2, 1.6}), ShouldEqual,
				"1791d205fb24b94aa09f730cb993323916297693481801b3337c571e16c3f113")
			So(digest.Sum([]float64{1.0, math.Copysign(0, -1), 1e-05, 0.0001, 1e16, 123456789.123456789, 2.5e-9, 5e-9, 1.5e-08}), ShouldEqual,
				"4167b8f7a7adf950003549f6a09e048402fbf832a5df0c61e06af1c26de88837")
		})

		Convey("Then values equal after rounding share a digest", func() {
			So(digest.Sum([]float64{0.30000000000000004, 0.4}), ShouldEqual, digest.Sum([]float64{0.3, 0.4}))
			So(digest.Sum([]float64{0.3, 0.400000001}), ShouldEqual, digest.Sum([]float64{0.3, 0.4}))
		})

		Convey("Then a change larger than the rounding precision changes the digest", func() {
			So(digest.Sum([]float64{0.3, 0.40000001}), ShouldEqual,
				"79c0b9125335a2075391e1e6ab48bef65cc3cf6adc87761d4ac2032dd7c2b011")
			So(digest.Sum([]float64{0.3, 0.40000001}), ShouldNotEqual, digest.Sum([]float64{0.3, 0.4}))
		})

		Convey("Then the digest is always 64 lowercase hex characters", func() {
			for _, v := range [][]float64{nil, {0}, {-1e300, 1e-300}, {math.NaN()}} {
				d := digest.Sum(v)
				So(len(d), ShouldEqual, digest.Size)
				So(hexDigest.MatchString(d), ShouldBeTrue)
			}
		})
	})
}

func TestVerify(t *testing.T) {
	Convey("Given a vector and its digest", t, func() {
		v := []float64{0.3, 0.4}
		h := digest.Sum(v)

		So(digest.Verify(v, h), ShouldBeTrue)
		So(digest.Verify(v, "F315C226B60DCB618EB0884F54B391AC2DD907817587B0476F3D724E0D74DCDE"), ShouldBeTrue)
		So(digest.Verify([]float64{0.3, 0.5}, h), ShouldBeFalse)
		So(digest.Verify(v, "deadbeef"), ShouldBeFalse)
	})
}
