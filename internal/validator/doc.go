// Package validator provides struct validation for the workspace engine.
//
// This package wraps go-playground/validator to provide:
//   - Consistent validation of repository inputs
//   - Human-readable error messages
//   - Structured validation error values
//
// # Usage
//
//	if err := validator.Validate(input); err != nil {
//	    // err is a validator.ValidationErrors
//	}
//
// # Custom Validations
//
// Custom validations can be registered in the init() function.
// The validator instance is package-level and thread-safe.
package validator
