// Package validation checks tool arguments before any work starts.
//
// Struct tag validation (go-playground/validator) covers argument structs;
// field names in errors are the JSON names. The programmatic Validator
// collects errors for checks that need code.
//
//	if err := validation.Validate(args); err != nil {
//	    return nil, err // INVALID_INPUT, JSON-RPC -32602
//	}
package validation
