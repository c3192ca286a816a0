package layout

import (
	"math"

	"github.com/kk-code-lab/rdoc/internal/geom"
)

// FitPolicy decides how natural page sizes map onto the viewport.
type FitPolicy int

const (
	FitWidth FitPolicy = iota
	FitHeight
	FitBoth
)

func (f FitPolicy) String() string {
	switch f {
	case FitHeight:
		return "height"
	case FitBoth:
		return "both"
	default:
		return "width"
	}
}

// ParseFitPolicy accepts "width", "height" or "both".
func ParseFitPolicy(s string) (FitPolicy, bool) {
	switch s {
	case "width", "":
		return FitWidth, true
	case "height":
		return FitHeight, true
	case "both":
		return FitBoth, true
	}
	return FitWidth, false
}

// sizeCalculator scales natural sizes. With a shared fit every page is
// scaled by the ratios of the largest pages; otherwise each page is fitted
// to the viewport on its own.
type sizeCalculator struct {
	fit         FitPolicy
	fitEachPage bool
	view        geom.Size
	widthRatio  float64
	heightRatio float64
	maxWidth    geom.Size
	maxHeight   geom.Size
}

func newSizeCalculator(fit FitPolicy, fitEachPage bool, maxWidthPage, maxHeightPage, view geom.Size) sizeCalculator {
	c := sizeCalculator{fit: fit, fitEachPage: fitEachPage, view: view}
	if maxWidthPage.Empty() || maxHeightPage.Empty() || view.Empty() {
		return c
	}
	switch fit {
	case FitHeight:
		c.maxHeight = fitHeight(maxHeightPage, view.H)
		c.heightRatio = c.maxHeight.H / maxHeightPage.H
		c.maxWidth = fitHeight(maxWidthPage, maxWidthPage.H*c.heightRatio)
	case FitBoth:
		fitted := fitBoth(maxWidthPage, view.W, view.H)
		c.widthRatio = fitted.W / maxWidthPage.W
		c.maxHeight = fitBoth(maxHeightPage, maxHeightPage.W*c.widthRatio, view.H)
		c.heightRatio = c.maxHeight.H / maxHeightPage.H
		c.maxWidth = fitBoth(maxWidthPage, view.W, maxWidthPage.H*c.heightRatio)
		c.widthRatio = c.maxWidth.W / maxWidthPage.W
	default:
		c.maxWidth = fitWidth(maxWidthPage, view.W)
		c.widthRatio = c.maxWidth.W / maxWidthPage.W
		c.maxHeight = fitWidth(maxHeightPage, maxHeightPage.W*c.widthRatio)
	}
	return c
}

func (c sizeCalculator) calculate(natural geom.Size) geom.Size {
	if natural.Empty() || c.view.Empty() {
		return geom.Size{}
	}
	maxW, maxH := c.view.W, c.view.H
	if !c.fitEachPage {
		maxW = natural.W * c.widthRatio
		maxH = natural.H * c.heightRatio
	}
	switch c.fit {
	case FitHeight:
		return fitHeight(natural, maxH)
	case FitBoth:
		return fitBoth(natural, maxW, maxH)
	default:
		return fitWidth(natural, maxW)
	}
}

func fitWidth(s geom.Size, maxWidth float64) geom.Size {
	ratio := s.W / s.H
	return geom.Size{W: maxWidth, H: math.Floor(maxWidth / ratio)}
}

func fitHeight(s geom.Size, maxHeight float64) geom.Size {
	ratio := s.H / s.W
	return geom.Size{W: math.Floor(maxHeight / ratio), H: maxHeight}
}

func fitBoth(s geom.Size, maxWidth, maxHeight float64) geom.Size {
	ratio := s.W / s.H
	w := maxWidth
	h := math.Floor(maxWidth / ratio)
	if h > maxHeight {
		h = maxHeight
		w = math.Floor(maxHeight * ratio)
	}
	return geom.Size{W: w, H: h}
}
