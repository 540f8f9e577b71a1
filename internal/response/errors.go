package response

// ErrCode is a typed error code enum for consistent API error identification.
// The code is the machine-readable reason; GetMessage supplies the
// human-legible string the frontend renders.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrEmailTaken         ErrCode = "EMAIL_TAKEN"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden     ErrCode = "FORBIDDEN"
	ErrNotAuthorized ErrCode = "NOT_AUTHORIZED"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Courses & enrollment ──────────────────────────────────────────
	ErrInvalidCourseCode ErrCode = "INVALID_COURSE_CODE"
	ErrCourseInactive    ErrCode = "COURSE_INACTIVE"
	ErrAlreadyEnrolled   ErrCode = "ALREADY_ENROLLED"
	ErrNotEnrolled       ErrCode = "NOT_ENROLLED"

	// ─── Exams ─────────────────────────────────────────────────────────
	ErrExamNotAvailable ErrCode = "EXAM_NOT_AVAILABLE"
	ErrExamNotStarted   ErrCode = "EXAM_NOT_STARTED"
	ErrExamWindowEnded  ErrCode = "EXAM_WINDOW_ENDED"
	ErrMaxAttempts      ErrCode = "MAX_ATTEMPTS_REACHED"
	ErrExamStarted      ErrCode = "EXAM_ALREADY_STARTED"
	ErrExamHasSessions  ErrCode = "EXAM_HAS_SESSIONS"
	ErrNoQuestions      ErrCode = "NO_QUESTIONS"

	// ─── Exam sessions ─────────────────────────────────────────────────
	ErrSessionNotActive ErrCode = "SESSION_NOT_ACTIVE"
	ErrSessionSubmitted ErrCode = "SESSION_ALREADY_SUBMITTED"

	// ─── AI generation ─────────────────────────────────────────────────
	ErrGenerationFailed ErrCode = "GENERATION_FAILED"

	// ─── Rate limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns the human-readable message for a given error code.
// Each eligibility failure keeps a distinct string so the client can show
// a specific reason instead of a generic "forbidden".
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Invalid email or password."
	case ErrEmailTaken:
		return "An account with this email already exists."
	case ErrTokenRequired:
		return "Authentication token required."
	case ErrTokenInvalid:
		return "Authentication token is invalid or expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrNotAuthorized:
		return "Not authorized."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "Resource already exists."

	// ─── Courses & enrollment ──────────────────────────────────────────
	case ErrInvalidCourseCode:
		return "Invalid course code. Please check and try again."
	case ErrCourseInactive:
		return "This course is not accepting enrollments."
	case ErrAlreadyEnrolled:
		return "You are already enrolled in this course."
	case ErrNotEnrolled:
		return "Not enrolled in this course."

	// ─── Exams ─────────────────────────────────────────────────────────
	case ErrExamNotAvailable:
		return "Exam not available."
	case ErrExamNotStarted:
		return "Exam has not started yet."
	case ErrExamWindowEnded:
		return "Exam window has ended."
	case ErrMaxAttempts:
		return "Maximum attempts reached."
	case ErrExamStarted:
		return "Cannot edit an exam that has already started."
	case ErrExamHasSessions:
		return "Cannot delete an exam with existing submissions."
	case ErrNoQuestions:
		return "Cannot publish an exam without questions."

	// ─── Exam sessions ─────────────────────────────────────────────────
	case ErrSessionNotActive:
		return "Session is not active."
	case ErrSessionSubmitted:
		return "Session already submitted."

	// ─── AI generation ─────────────────────────────────────────────────
	case ErrGenerationFailed:
		return "Failed to generate questions. Please try again or refine your prompt."

	// ─── Rate limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
