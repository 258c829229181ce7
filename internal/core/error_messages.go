package core

// error_messages.go maps technical errors to user-facing messages with
// support codes.
//
// # Error Codes Reference
//
// Codes are grouped by category. Patterns are matched case-insensitively
// with strings.Contains; the first match wins, so specific patterns come
// before general ones.
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Missing column: a required column is absent from the header
//	         Action: Download the template and compare column names
//	         Patterns: "missing required column"
//
//	VAL002 - Invalid rows: one or more rows failed validation
//	         Action: Download the error report, fix the rows marked ERROR
//	         Patterns: "invalid rows"
//
//	VAL003 - Invalid journey type
//	         Action: Use one of the listed journey type codes
//	         Patterns: "invalid journey_type"
//
//	VAL004 - Invalid coordinates
//	         Action: Use "lat,lng" with latitude -90..90 and longitude -180..180
//	         Patterns: "invalid coordinates"
//
//	VAL005 - Missing field: origin or destination was empty
//	         Action: Fill in origin and destination
//	         Patterns: "is required"
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large         Patterns: "file too large"
//	FILE002 - Not a CSV file         Patterns: "invalid file type"
//	FILE003 - Unsupported encoding   Patterns: "unsupported encoding"
//	FILE004 - No file                Patterns: "no file provided"
//	FILE005 - Empty file             Patterns: "empty file"
//
// # Run Errors (RUN001-RUN099)
//
//	RUN001 - Run cancelled           Patterns: "run cancelled"
//	RUN002 - System busy             Patterns: "too many runs"
//	RUN003 - Run not found           Patterns: "run not found"
//	RUN004 - Run still in progress   Patterns: "run still in progress"
//	RUN005 - Request cancelled       Patterns: "context canceled"
//	RUN006 - Request timeout         Patterns: "context deadline exceeded"
//
// # Lookup Errors (API001-API099)
//
//	API001 - Invalid location        Patterns: "invalid location"
//	API002 - Location not found      Patterns: "geocod"
//	API003 - Unauthorized            Patterns: "unauthorized", "forbidden"
//	API004 - Empty response          Patterns: "empty response"
//	API005 - Service unavailable     Patterns: "lookup service"
//
// # Storage Errors (DB001-DB099)
//
//	DB001 - History disabled         Patterns: "history is not enabled"
//	DB002 - Connection refused       Patterns: "connection refused"
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Too many requests      Patterns: "rate limit"
//
// # Default Error (ERR000)
//
// Fallback when nothing matches. Support staff should check the logs for
// the original error, which is always logged with the request id.

import (
	"errors"
	"strings"
)

// Sentinel errors returned by the service. Their text is chosen to match
// the patterns above.
var (
	ErrTooManyRuns     = errors.New("too many runs in progress, please try again later")
	ErrRunNotFound     = errors.New("run not found")
	ErrRunNotFinished  = errors.New("run still in progress")
	ErrRunCancelled    = errors.New("run cancelled")
	ErrHistoryDisabled = errors.New("history is not enabled")
	ErrNotCSV          = errors.New("invalid file type: only .csv files are accepted")
	ErrNoFile          = errors.New("no file provided")
	ErrNoDataRows      = errors.New("empty file: no data rows after header")
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Validation
	{
		pattern: "missing required column",
		msg: UserMessage{
			Message: "A required column is missing from the file",
			Action:  "Download the template and make sure origin, destination, journey_type and way_points are present",
			Code:    "VAL001",
		},
	},
	{
		pattern: "invalid rows",
		msg: UserMessage{
			Message: "Some rows failed validation",
			Action:  "Download the error report and fix the rows marked ERROR",
			Code:    "VAL002",
		},
	},
	{
		pattern: "invalid journey_type",
		msg: UserMessage{
			Message: "Journey type is not recognised",
			Action:  "Use one of: " + strings.Join(JourneyTypes, ", "),
			Code:    "VAL003",
		},
	},
	{
		pattern: "invalid coordinates",
		msg: UserMessage{
			Message: "Coordinates are out of range",
			Action:  "Use lat,lng with latitude between -90 and 90 and longitude between -180 and 180",
			Code:    "VAL004",
		},
	},
	{
		pattern: "is required",
		msg: UserMessage{
			Message: "A required field is empty",
			Action:  "Fill in origin, destination and at least one via point",
			Code:    "VAL005",
		},
	},

	// File
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Split the file into smaller files",
			Code:    "FILE001",
		},
	},
	{
		pattern: "invalid file type",
		msg: UserMessage{
			Message: "Only .csv files are accepted",
			Action:  "Export your spreadsheet as CSV and upload it again",
			Code:    "FILE002",
		},
	},
	{
		pattern: "unsupported encoding",
		msg: UserMessage{
			Message: "File encoding is not supported",
			Action:  "Save the file as UTF-8, windows-1252 or windows-1251",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a CSV file to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file has no data rows",
			Action:  "Add at least one trip below the header row",
			Code:    "FILE005",
		},
	},

	// Runs
	{
		pattern: "run cancelled",
		msg: UserMessage{
			Message: "The bulk run was cancelled",
			Action:  "Download the partial results or start a new run",
			Code:    "RUN001",
		},
	},
	{
		pattern: "too many runs",
		msg: UserMessage{
			Message: "System is busy processing other files",
			Action:  "Please wait a moment and try again",
			Code:    "RUN002",
		},
	},
	{
		pattern: "run not found",
		msg: UserMessage{
			Message: "Bulk run not found",
			Action:  "The run may have expired. Please upload the file again",
			Code:    "RUN003",
		},
	},
	{
		pattern: "run still in progress",
		msg: UserMessage{
			Message: "Results are not ready yet",
			Action:  "Wait for the run to finish before downloading",
			Code:    "RUN004",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "RUN005",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "RUN006",
		},
	},

	// Lookup service
	{
		pattern: "invalid location",
		msg: UserMessage{
			Message: "Invalid location",
			Action:  "Please check the coordinates or city name",
			Code:    "API001",
		},
	},
	{
		pattern: "geocod",
		msg: UserMessage{
			Message: "Location could not be found",
			Action:  "Use a more specific place name or coordinates",
			Code:    "API002",
		},
	},
	{
		pattern: "unauthorized",
		msg: UserMessage{
			Message: "The toll service rejected the API key",
			Action:  "Check the configured API key",
			Code:    "API003",
		},
	},
	{
		pattern: "forbidden",
		msg: UserMessage{
			Message: "The toll service rejected the API key",
			Action:  "Check the configured API key",
			Code:    "API003",
		},
	},
	{
		pattern: "empty response",
		msg: UserMessage{
			Message: "The toll service returned no data",
			Action:  "Please try again",
			Code:    "API004",
		},
	},
	{
		pattern: "lookup service",
		msg: UserMessage{
			Message: "The toll service is unavailable",
			Action:  "Please try again in a few moments",
			Code:    "API005",
		},
	},

	// Storage
	{
		pattern: "history is not enabled",
		msg: UserMessage{
			Message: "Run history is not available",
			Action:  "Configure DATABASE_URL to keep run history",
			Code:    "DB001",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to a backing service",
			Action:  "Please try again in a few moments",
			Code:    "DB002",
		},
	},

	// Rate limiting
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// If no pattern matches, a generic message with code ERR000 is returned.
//
// Example:
//
//	msg := MapError(ErrTooManyRuns)
//	// msg.Code == "RUN002"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}
