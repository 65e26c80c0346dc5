package models

import "time"

type Step string

const (
	StepIdle      Step = "idle"
	StepInitiated Step = "initiated"
	StepLoading   Step = "loading"
	StepScoring   Step = "scoring"
	StepSweeping  Step = "sweeping"
	StepCompleted Step = "completed"
	StepFailed    Step = "failed"
)

// ValidSteps lists every step a run can report
var ValidSteps = map[Step]bool{
	StepIdle:      true,
	StepInitiated: true,
	StepLoading:   true,
	StepScoring:   true,
	StepSweeping:  true,
	StepCompleted: true,
	StepFailed:    true,
}

const (
	ReportStatusPending   = "pending"
	ReportStatusCompleted = "completed"
	ReportStatusFailed    = "failed"
)

// EvaluationRequest starts a threshold sweep over a labeled dataset directory
type EvaluationRequest struct {
	DatasetPath string    `json:"datasetPath" binding:"required"`
	Extension   string    `json:"extension,omitempty"`
	Thresholds  []float64 `json:"thresholds,omitempty" binding:"omitempty,dive,min=0"`
	EmbedDim    int       `json:"embedDim,omitempty" binding:"omitempty,min=1,max=1024"` // max is plagiarism.MaxEmbedDim
}

// EvaluationResponse is returned when a run is accepted
type EvaluationResponse struct {
	RunID string `json:"runId"`
	Step  Step   `json:"step"`
}

// StatusResponse reports the current step of a run
type StatusResponse struct {
	RunID string `json:"runId"`
	Step  Step   `json:"step"`
}

// ThresholdResult is the confusion matrix and derived measures at one threshold
type ThresholdResult struct {
	Threshold      float64 `bson:"threshold" json:"threshold"`
	TruePositives  int     `bson:"tp" json:"tp"`
	FalsePositives int     `bson:"fp" json:"fp"`
	TrueNegatives  int     `bson:"tn" json:"tn"`
	FalseNegatives int     `bson:"fn" json:"fn"`
	Total          int     `bson:"total" json:"total"`
	Accuracy       float64 `bson:"accuracy" json:"accuracy"`
	Precision      float64 `bson:"precision" json:"precision"`
	Recall         float64 `bson:"recall" json:"recall"`
	FMeasure       float64 `bson:"fMeasure" json:"fMeasure"`
}

// EvaluationReport is the outcome of one threshold sweep, stored in MongoDB
type EvaluationReport struct {
	RunID        string            `bson:"_id" json:"runId"`
	DatasetPath  string            `bson:"datasetPath" json:"datasetPath"`
	EmbedDim     int               `bson:"embedDim" json:"embedDim"`
	Status       string            `bson:"status" json:"status"`
	Error        string            `bson:"error,omitempty" json:"error,omitempty"`
	Cases        int               `bson:"cases" json:"cases"`
	SkippedCases []string          `bson:"skippedCases" json:"skippedCases"`
	Pairs        int               `bson:"pairs" json:"pairs"`
	SkippedPairs int               `bson:"skippedPairs" json:"skippedPairs"`
	Thresholds   []ThresholdResult `bson:"thresholds" json:"thresholds"`
	Best         ThresholdResult   `bson:"best" json:"best"`
	Duration     time.Duration     `bson:"durationNs" json:"durationNs"`
	CreatedAt    time.Time         `bson:"createdAt" json:"createdAt"`
	CompletedAt  time.Time         `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
}
