// Package errors provides application error types for the workspace engine.
//
// This package defines:
//   - AppError type with error classification
//   - Error constructors for common error types
//   - Error type checking helpers
//   - HTTP status code mapping for the operational surface
//
// # Error Types
//
//   - Validation: invalid input data (400)
//   - DataIntegrity: a polymorphic base row with no specialization (500)
//
// # Usage
//
// Create errors using constructor functions:
//
//	return apperrors.Validation("variable value must carry a specialization")
//	return apperrors.DataIntegrity("variable value has no specialization")
//
// Check error types:
//
//	if apperrors.IsValidation(err) {
//	    // Reject the input
//	}
//
// # Error Wrapping
//
// Errors support wrapping with fmt.Errorf:
//
//	return fmt.Errorf("create failed: %w", apperrors.Validation("missing variant"))
//
// Note that the repository contract represents absence as a nil entity,
// not an error; workspace-scope violations read as absence too.
package errors
