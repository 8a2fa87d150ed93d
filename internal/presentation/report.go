package presentation

import (
	"github.com/DukeRupert/defectlens/internal/domain"
	"github.com/DukeRupert/defectlens/internal/workflow"
)

// Placeholder and progress copy.
const (
	AwaitingTitle   = "Awaiting Analysis"
	AwaitingMessage = `Upload a building image and click "Analyze" to see the AI-powered defect detection results here.`
	LoadingTitle    = "Analyzing Image..."
	LoadingMessage  = "AI is inspecting the building, please wait."
)

// Report is the view model for the analysis panel.
type Report struct {
	State      string         `json:"state"`
	PreviewURL string         `json:"previewUrl,omitempty"`
	Image      *ImageView     `json:"image,omitempty"`
	CanAnalyze bool           `json:"canAnalyze"`
	Loading    *Notice        `json:"loading,omitempty"`
	Awaiting   *Notice        `json:"awaiting,omitempty"`
	Condition  *ConditionView `json:"condition,omitempty"`
	Defects    []DefectCard   `json:"defects,omitempty"`
	Error      string         `json:"error,omitempty"`
	ErrorCode  string         `json:"errorCode,omitempty"`
	Invocation uint64         `json:"invocation"`
}

// Notice is a titled message shown in place of results.
type Notice struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// ImageView describes the selected image.
type ImageView struct {
	Filename    string  `json:"filename"`
	ContentType string  `json:"contentType"`
	SizeMB      float64 `json:"sizeMb"`
	Width       int     `json:"width,omitempty"`
	Height      int     `json:"height,omitempty"`
}

// ConditionView is the overall condition badge and summary.
type ConditionView struct {
	Label   string `json:"label"`
	Color   string `json:"color"`
	Damaged bool   `json:"damaged"`
	Summary string `json:"summary"`
}

// DefectCard is one detected defect ready for display.
type DefectCard struct {
	Kind        string `json:"kind"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Percent     int    `json:"percent"`
	Bucket      string `json:"bucket"`
	Color       string `json:"color"`
}

// BuildReport derives the analysis panel from a controller snapshot.
func BuildReport(snap workflow.Snapshot) Report {
	report := Report{
		State:      snap.State.String(),
		PreviewURL: snap.PreviewURL,
		CanAnalyze: snap.CanAnalyze(),
		Invocation: snap.Invocation,
	}

	if snap.Image != nil {
		report.Image = &ImageView{
			Filename:    snap.Image.Filename,
			ContentType: snap.Image.ContentType,
			SizeMB:      snap.Image.SizeMB(),
			Width:       snap.Image.Width,
			Height:      snap.Image.Height,
		}
	}

	if snap.Err != nil {
		report.Error = ErrorBanner(snap.Err)
		report.ErrorCode = domain.ErrorCode(snap.Err)
	}

	switch {
	case snap.State == domain.WorkflowStateAnalyzing:
		report.Loading = &Notice{Title: LoadingTitle, Message: LoadingMessage}
	case snap.Result != nil:
		report.Condition = &ConditionView{
			Label:   ConditionLabel(snap.Result),
			Color:   ConditionColor(snap.Result),
			Damaged: ConditionIsDamaged(snap.Result),
			Summary: snap.Result.Summary,
		}
		report.Defects = make([]DefectCard, 0, len(snap.Result.Defects))
		for _, d := range snap.Result.Defects {
			bucket := ConfidenceBucket(d.Confidence)
			report.Defects = append(report.Defects, DefectCard{
				Kind:        d.Kind.String(),
				Label:       Label(d.Kind),
				Description: d.Description,
				Percent:     ConfidencePercent(d.Confidence),
				Bucket:      bucket.String(),
				Color:       bucket.Color(),
			})
		}
	default:
		report.Awaiting = &Notice{Title: AwaitingTitle, Message: AwaitingMessage}
	}

	return report
}
