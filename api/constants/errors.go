package constants

import "fmt"

// ============================================================================
// AUTHENTICATION & SESSION ERRORS
// ============================================================================

const (
	ErrMissingSessionID = "session_id is required in the request"
	ErrInvalidSession   = "Your session has expired or is invalid. Please login again"
	ErrWrongPassword    = "Incorrect password"
	ErrLockedOut        = "Too many failed attempts. Try again in a minute"
	ErrMaxUsers         = "Maximum number of concurrent users reached. Please try again later"
	ErrPleaseLogin      = "Please login to continue."
	ErrMethodNotAllowed = "Method Not Allowed"
)

// ============================================================================
// VALIDATION ERRORS - Credit Requests
// ============================================================================

const (
	ErrTicketRequired       = "Ticket Number is required"
	ErrInvalidTicketDate    = "Invalid ticket date. Expected format: YYYY-MM-DD"
	ErrInvalidCreditType    = "Invalid credit type. Expected Credit Memo or Internal"
	ErrRecordNotFound       = "Credit request not found"
	ErrDuplicatePair        = "Invoice/Item pair already exists in the database"
	ErrNoRecordsInFile      = "No usable rows found in the uploaded file"
	ErrUnknownField         = "Unknown field '%s' in update"
	ErrInvalidStatusLabel   = "Invalid status label '%s'"
	ErrStatusTextRequired   = "Status text is required"
	ErrCannotDeleteAllPairs = "Refusing to delete every record in a duplicate group; keep at least one"
)

// ============================================================================
// FILE UPLOAD ERRORS
// ============================================================================

const (
	ErrFileUploadFailed  = "File upload failed. Please check the file format and try again"
	ErrInvalidFileFormat = "Invalid file format. Please upload a valid .xlsx, .xls or .csv file"
	ErrFileParsingFailed = "Failed to parse file contents. Please check the file format"
	ErrEmptyFile         = "Uploaded file is empty"
	ErrMissingColumns    = "File is missing required columns: %s"
	ErrInvalidDataRow    = "Invalid data found in row %d: %s"
)

// ============================================================================
// DATABASE OPERATION ERRORS
// ============================================================================

const (
	ErrDatabaseConnection = "Database connection failed. Please try again later"
	ErrQueryFailed        = "Database query failed. Please contact support if this persists"
	ErrTransactionFailed  = "Transaction failed. Please try again"
	ErrStoreWriteFailed   = "Failed to save record. Please try again"
	ErrStoreDeleteFailed  = "Failed to delete record from database"
)

// ============================================================================
// REMINDER ERRORS
// ============================================================================

const (
	ErrReminderNotFound  = "Reminder not found"
	ErrReminderDuplicate = "An identical reminder was added moments ago"
	ErrReminderTooFarOut = "Reminder due time exceeds the two week maximum"
)

// ============================================================================
// GENERAL ERRORS
// ============================================================================

const (
	ErrInternalServer     = "Internal server error. Please contact support"
	ErrInvalidRequest     = "Invalid request. Please check your input"
	ErrInvalidRequestBody = "Invalid request body"
	ErrInvalidJSON        = "invalid json or missing fields"
	ErrNoDataFound        = "No data found matching your criteria"
)

// ============================================================================
// SUCCESS MESSAGES
// ============================================================================

const (
	SuccessCreated  = "Record created successfully"
	SuccessUpdated  = "Record updated successfully"
	SuccessDeleted  = "Record deleted successfully"
	SuccessUploaded = "File processed successfully. %d records submitted, %d duplicates skipped"
)

// ============================================================================
// HELPER FUNCTIONS TO FORMAT ERRORS WITH CONTEXT
// ============================================================================

// FormatError formats an error message with additional context
func FormatError(baseError string, context ...interface{}) string {
	if len(context) == 0 {
		return baseError
	}
	return fmt.Sprintf(baseError, context...)
}

// FormatRowError formats an error for a specific data row
func FormatRowError(rowNum int, reason string) string {
	return fmt.Sprintf(ErrInvalidDataRow, rowNum, reason)
}
