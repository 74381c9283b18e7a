package core

// Stage is a state of a single pipeline run. Runs move strictly forward.
type Stage int

const (
	StageLoaded Stage = iota
	StageSegmented
	StageComposited
	StageTextured
	StageToneMapped
	StageContrastEnhanced
	StageDone
)

var stageNames = [...]string{
	StageLoaded:           "loaded",
	StageSegmented:        "segmented",
	StageComposited:       "composited",
	StageTextured:         "textured",
	StageToneMapped:       "tone_mapped",
	StageContrastEnhanced: "contrast_enhanced",
	StageDone:             "done",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}

// Next returns the following state; Done is terminal.
func (s Stage) Next() Stage {
	if s >= StageDone {
		return StageDone
	}
	return s + 1
}

func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
