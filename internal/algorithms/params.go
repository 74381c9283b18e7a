package algorithms

// DetectParams is the fixed multi-scale search policy handed to a Detector.
type DetectParams struct {
	ScaleFactor  float64 `yaml:"scaleFactor" validate:"gt=1"`
	MinNeighbors int     `yaml:"minNeighbors" validate:"gte=1"`
	MinSize      int     `yaml:"minSize" validate:"gte=1"`
}

func DefaultDetectParams() DetectParams {
	return DetectParams{
		ScaleFactor:  1.1,
		MinNeighbors: 5,
		MinSize:      80,
	}
}

// SegmentParams controls seeding, GrabCut refinement and mask feathering.
type SegmentParams struct {
	Inset         int `yaml:"inset" validate:"gte=0"`
	Iterations    int `yaml:"iterations" validate:"gte=1,lte=20"`
	FeatherKernel int `yaml:"featherKernel" validate:"gte=1,odd"`
	// CleanupKernel enables a morphological open/close of the hard mask
	// before feathering. Zero disables it.
	CleanupKernel int `yaml:"cleanupKernel" validate:"omitempty,gte=3,odd"`
}

func DefaultSegmentParams() SegmentParams {
	return SegmentParams{
		Inset:         10,
		Iterations:    5,
		FeatherKernel: 21,
	}
}

// BokehParams controls the background defocus.
type BokehParams struct {
	Kernel int `yaml:"kernel" validate:"gte=3,odd"`
}

func DefaultBokehParams() BokehParams {
	return BokehParams{Kernel: 61}
}

// TextureParams controls denoising, edge-preserving smoothing and unsharp masking.
type TextureParams struct {
	H                 float32 `yaml:"h" validate:"gt=0"`
	HColor            float32 `yaml:"hColor" validate:"gt=0"`
	TemplateWindow    int     `yaml:"templateWindow" validate:"gte=3,odd"`
	SearchWindow      int     `yaml:"searchWindow" validate:"gte=3,odd"`
	BilateralDiameter int     `yaml:"bilateralDiameter" validate:"gte=1"`
	SigmaColor        float64 `yaml:"sigmaColor" validate:"gt=0"`
	SigmaSpace        float64 `yaml:"sigmaSpace" validate:"gt=0"`
	SharpenSigma      float64 `yaml:"sharpenSigma" validate:"gt=0"`
	SharpenAmount     float64 `yaml:"sharpenAmount" validate:"gte=1"`
}

func DefaultTextureParams() TextureParams {
	return TextureParams{
		H:                 6,
		HColor:            6,
		TemplateWindow:    7,
		SearchWindow:      21,
		BilateralDiameter: 7,
		SigmaColor:        60,
		SigmaSpace:        60,
		SharpenSigma:      1.1,
		SharpenAmount:     1.5,
	}
}

// ToneParams maps mean luminance to gamma between two anchors.
type ToneParams struct {
	DarkLuminance   float64 `yaml:"darkLuminance" validate:"gte=0,lte=255"`
	DarkGamma       float64 `yaml:"darkGamma" validate:"gt=0"`
	BrightLuminance float64 `yaml:"brightLuminance" validate:"gtfield=DarkLuminance,lte=255"`
	BrightGamma     float64 `yaml:"brightGamma" validate:"gt=0"`
	MinGamma        float64 `yaml:"minGamma" validate:"gt=0"`
	MaxGamma        float64 `yaml:"maxGamma" validate:"gtefield=MinGamma"`
}

func DefaultToneParams() ToneParams {
	return ToneParams{
		DarkLuminance:   50,
		DarkGamma:       1.6,
		BrightLuminance: 200,
		BrightGamma:     0.9,
		MinGamma:        0.85,
		MaxGamma:        1.6,
	}
}

// ContrastParams configures CLAHE on the luminance channel.
type ContrastParams struct {
	ClipLimit float64 `yaml:"clipLimit" validate:"gt=0"`
	TileGrid  int     `yaml:"tileGrid" validate:"gte=1"`
}

func DefaultContrastParams() ContrastParams {
	return ContrastParams{
		ClipLimit: 2.4,
		TileGrid:  8,
	}
}
