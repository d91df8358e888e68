package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidHorizon       ErrorCode = 102
	ErrCodeInvalidBrokerMode    ErrorCode = 103
	ErrCodeInvalidPeriod        ErrorCode = 104
	ErrCodeInvalidThreshold     ErrorCode = 105
	ErrCodeMissingParameter     ErrorCode = 106
	ErrCodeInsufficientData     ErrorCode = 107

	// Ingestion errors (200-299)
	ErrCodeRawFileNotFound       ErrorCode = 200
	ErrCodeMalformedRow          ErrorCode = 201
	ErrCodeMalformedFile         ErrorCode = 202
	ErrCodeNormalizedWriteFailed ErrorCode = 203
	ErrCodeNoRawData             ErrorCode = 204

	// Feature errors (300-399)
	ErrCodeIndicatorNotFound      ErrorCode = 300
	ErrCodeIndicatorAlreadyExists ErrorCode = 301
	ErrCodeIndicatorCalculation   ErrorCode = 302

	// Storage errors (400-499)
	ErrCodeDataNotFound ErrorCode = 400
	ErrCodeQueryFailed  ErrorCode = 401
	ErrCodeWriteFailed  ErrorCode = 402

	// Training errors (500-599)
	ErrCodeNoTrainingData       ErrorCode = 500
	ErrCodeArtifactNotFound     ErrorCode = 501
	ErrCodeArtifactCorrupt      ErrorCode = 502
	ErrCodeArtifactIncompatible ErrorCode = 503
	ErrCodeTrainingFailed       ErrorCode = 504
	ErrCodeRunLocked            ErrorCode = 505

	// Evaluation errors (600-699)
	ErrCodeEvaluationFailed   ErrorCode = 600
	ErrCodeHistoryWriteFailed ErrorCode = 601

	// Prediction errors (700-799)
	ErrCodeModelUnavailable    ErrorCode = 700
	ErrCodeFeaturesUnavailable ErrorCode = 701
)

// Category names the code's group, e.g. "training" for 500-599.
func (c ErrorCode) Category() string {
	switch {
	case c >= 100 && c < 200:
		return "validation"
	case c >= 200 && c < 300:
		return "ingestion"
	case c >= 300 && c < 400:
		return "feature"
	case c >= 400 && c < 500:
		return "storage"
	case c >= 500 && c < 600:
		return "training"
	case c >= 600 && c < 700:
		return "evaluation"
	case c >= 700 && c < 800:
		return "prediction"
	default:
		return "general"
	}
}
