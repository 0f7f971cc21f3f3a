package protocol

import "time"

// ConsultationCompleted is broadcast after a submission finishes the
// pipeline, whether or not a report was produced.
type ConsultationCompleted struct {
	ConsultationID  string    `json:"consultation_id"`
	UserID          string    `json:"user_id"`
	TargetWord      string    `json:"target_word,omitempty"`
	Transcription   string    `json:"transcription,omitempty"`
	Score           float64   `json:"score"`
	Provider        string    `json:"provider,omitempty"`
	ReportPath      string    `json:"report_path,omitempty"`
	AudioDurationMS int64     `json:"audio_duration_ms,omitempty"`
	CompletedAt     time.Time `json:"completed_at"`
}

const SubjectConsultationCompleted = "c317.consultation.completed"
