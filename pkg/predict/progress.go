package predict

type Stage string

const (
	StageLoading    Stage = "loading"
	StageAnalyzing  Stage = "analyzing"
	StageRequesting Stage = "requesting"
	StageAdvising   Stage = "advising"
	StageComplete   Stage = "complete"
)

var stagePercent = map[Stage]int{
	StageLoading:    20,
	StageAnalyzing:  40,
	StageRequesting: 60,
	StageAdvising:   80,
	StageComplete:   100,
}

var stageMessage = map[Stage]string{
	StageLoading:    "Loading race data...",
	StageAnalyzing:  "Analyzing tire degradation...",
	StageRequesting: "Requesting AI forecast...",
	StageAdvising:   "Computing pit strategy...",
	StageComplete:   "Complete!",
}

type (
	Progress struct {
		Stage   Stage  `json:"stage"`
		Percent int    `json:"percent"`
		Message string `json:"message"`
	}
	ProgressFunc func(Progress)
)

func progressOf(s Stage) Progress {
	return Progress{Stage: s, Percent: stagePercent[s], Message: stageMessage[s]}
}
