// Package stepform implements the state of a multi-step ("wizard") form.
//
// A Directory holds the ordered steps and the fields each one owns. A
// Resolver turns a step's field values into a verdict, using explicit
// per-step validators first and per-type defaults for the remaining fields.
// A Machine tracks the active step, gates forward navigation on the
// Resolver's verdict and coordinates whole-form submission.
//
// Invalid input is never an error: GoNext reports OutcomeValidationFailed
// with the field messages and stays put. Errors are reserved for misuse
// (UnknownStepError, DuplicateStepError), for requests made while a
// validation is pending (ErrTransitionInProgress) and for a closed form
// (ErrClosed).
package stepform
