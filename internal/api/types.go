package api

// envelope is the wrapper every JSON endpoint shares.
type envelope[T any] struct {
	Response   T      `json:"Response"`
	Error      string `json:"Error"`
	StatusCode int    `json:"StatusCode"`
	Success    bool   `json:"Success"`
	Type       string `json:"Type"`
}

// Image is one entry from the image history.
type Image struct {
	ExposureTime  float64 `json:"ExposureTime"`
	ImageType     string  `json:"ImageType"`
	Filter        string  `json:"Filter"`
	RMSText       string  `json:"RmsText"`
	Temperature   float64 `json:"Temperature"`
	CameraName    string  `json:"CameraName"`
	Gain          int     `json:"Gain"`
	Offset        int     `json:"Offset"`
	Date          string  `json:"Date"`
	TelescopeName string  `json:"TelescopeName"`
	FocalLength   int     `json:"FocalLength"`
	StDev         float64 `json:"StDev"`
	Mean          float64 `json:"Mean"`
	Median        float64 `json:"Median"`
	Stars         int     `json:"Stars"`
	HFR           float64 `json:"HFR"`
	IsBayered     bool    `json:"IsBayered"`
}

// Frame types.
const (
	FrameLight = "LIGHT"
	FrameDark  = "DARK"
	FrameFlat  = "FLAT"
	FrameBias  = "BIAS"
)

// Key identifies an image across polls. Sequence indexes restart between
// sessions, so identity is capture date plus camera.
func (im Image) Key() string { return im.Date + "|" + im.CameraName }

func (im Image) IsLight() bool { return im.ImageType == FrameLight }

func (im Image) IsCalibration() bool {
	switch im.ImageType {
	case FrameDark, FrameFlat, FrameBias:
		return true
	}
	return false
}

// MountInfo is the mount status snapshot used to enrich notifications.
type MountInfo struct {
	Connected                 bool    `json:"Connected"`
	RightAscensionString      string  `json:"RightAscensionString"`
	DeclinationString         string  `json:"DeclinationString"`
	AltitudeString            string  `json:"AltitudeString"`
	AzimuthString             string  `json:"AzimuthString"`
	SideOfPier                string  `json:"SideOfPier"`
	TrackingEnabled           bool    `json:"TrackingEnabled"`
	AtPark                    bool    `json:"AtPark"`
	Slewing                   bool    `json:"Slewing"`
	TimeToMeridianFlip        float64 `json:"TimeToMeridianFlip"`
	TimeToMeridianFlipString  string  `json:"TimeToMeridianFlipString"`
	SiteLatitude              float64 `json:"SiteLatitude"`
	SiteLongitude             float64 `json:"SiteLongitude"`
}

// FocusPoint is one measurement on the autofocus curve.
type FocusPoint struct {
	Position int     `json:"Position"`
	Value    float64 `json:"Value"`
	Error    float64 `json:"Error"`
}

type RSquares struct {
	Quadratic  float64 `json:"Quadratic"`
	Hyperbolic float64 `json:"Hyperbolic"`
	Gaussian   float64 `json:"Gaussian"`
	LeftTrend  float64 `json:"LeftTrend"`
	RightTrend float64 `json:"RightTrend"`
}

// AutofocusReport is the latest autofocus run's detail.
type AutofocusReport struct {
	Filter               string       `json:"Filter"`
	AutoFocuserName      string       `json:"AutoFocuserName"`
	Timestamp            string       `json:"Timestamp"`
	Temperature          float64      `json:"Temperature"`
	Method               string       `json:"Method"`
	Fitting              string       `json:"Fitting"`
	InitialFocusPoint    FocusPoint   `json:"InitialFocusPoint"`
	CalculatedFocusPoint FocusPoint   `json:"CalculatedFocusPoint"`
	MeasurePoints        []FocusPoint `json:"MeasurePoints"`
	RSquares             RSquares     `json:"RSquares"`
	Duration             string       `json:"Duration"`
}

// BestRSquared returns the highest fit quality across the fitted curves.
func (a *AutofocusReport) BestRSquared() float64 {
	best := a.RSquares.Quadratic
	for _, v := range []float64{a.RSquares.Hyperbolic, a.RSquares.Gaussian, a.RSquares.LeftTrend, a.RSquares.RightTrend} {
		if v > best {
			best = v
		}
	}
	return best
}

// Successful reports whether the run converged on a clean fit.
func (a *AutofocusReport) Successful() bool {
	return a.CalculatedFocusPoint.Error == 0 && a.BestRSquared() > 0.8
}

// PositionChange is the focuser travel of the run.
func (a *AutofocusReport) PositionChange() int {
	return a.CalculatedFocusPoint.Position - a.InitialFocusPoint.Position
}
